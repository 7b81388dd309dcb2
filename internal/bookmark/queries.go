package bookmark

import (
	"sort"
	"strings"

	"github.com/felixgeelhaar/practicum/internal/domain"
)

// UncategorizedGroup holds bookmarks that belong to no collection
const UncategorizedGroup = "Uncategorized"

// RecentBookmarkLimit caps BookmarkStatistics.RecentlyBookmarked
const RecentBookmarkLimit = 5

// Bookmarked returns every bookmarked progress record
func (o *Organizer) Bookmarked() []domain.ExerciseProgress {
	return o.progress.Bookmarked()
}

// SearchBookmarks matches query case-insensitively against title,
// category, tags and notes of bookmarked exercises
func (o *Organizer) SearchBookmarks(query string) []domain.ExerciseProgress {
	q := strings.ToLower(query)
	return o.filterBookmarked(func(p domain.ExerciseProgress) bool {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Category), q) ||
			strings.Contains(strings.ToLower(p.Notes), q) {
			return true
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				return true
			}
		}
		return false
	})
}

// FilterByCategory returns bookmarks in exactly this category
func (o *Organizer) FilterByCategory(category string) []domain.ExerciseProgress {
	return o.filterBookmarked(func(p domain.ExerciseProgress) bool { return p.Category == category })
}

// FilterByDifficulty returns bookmarks with exactly this difficulty
func (o *Organizer) FilterByDifficulty(difficulty domain.Difficulty) []domain.ExerciseProgress {
	return o.filterBookmarked(func(p domain.ExerciseProgress) bool { return p.Difficulty == difficulty })
}

// FilterByCompletion returns completed or open bookmarks
func (o *Organizer) FilterByCompletion(completed bool) []domain.ExerciseProgress {
	return o.filterBookmarked(func(p domain.ExerciseProgress) bool { return p.IsCompleted == completed })
}

func (o *Organizer) filterBookmarked(keep func(domain.ExerciseProgress) bool) []domain.ExerciseProgress {
	var out []domain.ExerciseProgress
	for _, p := range o.progress.Bookmarked() {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// GroupByCollection maps collection names to their resolved exercises.
// Bookmarks outside every collection are grouped under
// UncategorizedGroup when there are any. Names are unique on create and
// rename; imported collections sharing a name are merged into one group.
func (o *Organizer) GroupByCollection() map[string][]domain.ExerciseProgress {
	groups := make(map[string][]domain.ExerciseProgress)
	member := make(map[string]struct{})

	for _, c := range o.AllCollections() {
		groups[c.Name] = append(groups[c.Name], o.resolve(c.ExerciseIDs)...)
		for _, id := range c.ExerciseIDs {
			member[id] = struct{}{}
		}
	}

	var uncategorized []domain.ExerciseProgress
	for _, p := range o.progress.Bookmarked() {
		if _, ok := member[p.ExerciseID]; !ok {
			uncategorized = append(uncategorized, p)
		}
	}
	if len(uncategorized) > 0 {
		groups[UncategorizedGroup] = append(groups[UncategorizedGroup], uncategorized...)
	}
	return groups
}

// GroupByTag maps tag names to their resolved exercises. Unused tags are
// left out.
func (o *Organizer) GroupByTag() map[string][]domain.ExerciseProgress {
	groups := make(map[string][]domain.ExerciseProgress)
	for _, t := range o.AllTags() {
		if len(t.ExerciseIDs) > 0 {
			groups[t.Name] = o.resolve(t.ExerciseIDs)
		}
	}
	return groups
}

// Statistics summarizes bookmarked exercises and the organization over them
func (o *Organizer) Statistics() domain.BookmarkStatistics {
	bookmarked := o.progress.Bookmarked()

	o.mu.RLock()
	stats := domain.BookmarkStatistics{
		TotalBookmarks:         len(bookmarked),
		TotalCollections:       len(o.collections),
		TotalTags:              len(o.tags),
		CategoryDistribution:   make(map[string]int),
		DifficultyDistribution: make(map[string]int),
	}
	o.mu.RUnlock()

	for _, p := range bookmarked {
		if p.IsCompleted {
			stats.CompletedBookmarks++
		}
		stats.TotalTimeSpentMs += p.TimeSpentMs
		stats.CategoryDistribution[orDefault(p.Category, "Uncategorized")]++
		stats.DifficultyDistribution[orDefault(string(p.Difficulty), "Unknown")]++
	}
	if n := len(bookmarked); n > 0 {
		stats.CompletionRate = float64(stats.CompletedBookmarks) / float64(n) * 100
		stats.AverageTimePerBookmark = float64(stats.TotalTimeSpentMs) / float64(n)
	}

	recent := append([]domain.ExerciseProgress(nil), bookmarked...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].LastAccessedAt.After(recent[j].LastAccessedAt)
	})
	if len(recent) > RecentBookmarkLimit {
		recent = recent[:RecentBookmarkLimit]
	}
	stats.RecentlyBookmarked = recent
	return stats
}
