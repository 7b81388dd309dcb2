package progress

import (
	"sort"
	"time"

	"github.com/felixgeelhaar/practicum/internal/domain"
)

// WeeklyBuckets is how many weeks of history Statistics reports
const WeeklyBuckets = 12

// ComputeStatistics aggregates records and closed sessions as seen at now.
// Calendar math uses now's location.
func ComputeStatistics(records []domain.ExerciseProgress, sessions []domain.ExerciseSession, now time.Time) domain.Statistics {
	stats := domain.Statistics{
		TotalExercises: len(records),
		Categories:     make(map[string]domain.Rollup),
		Difficulties:   make(map[string]domain.Rollup),
	}

	var progressSum float64
	for i := range records {
		p := &records[i]
		if p.IsCompleted {
			stats.CompletedExercises++
		}
		if p.IsInProgress() {
			stats.InProgressExercises++
		}
		if p.IsBookmarked {
			stats.BookmarkedExercises++
		}
		stats.TotalTimeSpentMs += p.TimeSpentMs
		progressSum += p.ReadingProgress

		if stats.LastActiveDate == nil || p.LastAccessedAt.After(*stats.LastActiveDate) {
			t := p.LastAccessedAt
			stats.LastActiveDate = &t
		}

		if p.Category != "" {
			stats.Categories[p.Category] = addRollup(stats.Categories[p.Category], p)
		}
		if p.Difficulty != "" {
			key := string(p.Difficulty)
			stats.Difficulties[key] = addRollup(stats.Difficulties[key], p)
		}
	}

	if n := len(records); n > 0 {
		stats.AverageProgress = progressSum / float64(n)
		stats.AverageTimeMs = float64(stats.TotalTimeSpentMs) / float64(n)
		stats.CompletionRate = float64(stats.CompletedExercises) / float64(n) * 100
	}

	stats.Streak = Streak(records, now)
	stats.Weekly = Weekly(sessions, now.Location())
	return stats
}

func addRollup(r domain.Rollup, p *domain.ExerciseProgress) domain.Rollup {
	r.Total++
	if p.IsCompleted {
		r.Completed++
	}
	r.TimeSpentMs += p.TimeSpentMs
	return r
}

// Streak counts consecutive calendar days, walking back from now's day,
// with at least one completion. The first missing day ends the streak.
func Streak(records []domain.ExerciseProgress, now time.Time) int {
	var completions []time.Time
	for _, p := range records {
		if p.IsCompleted && p.CompletedAt != nil {
			completions = append(completions, *p.CompletedAt)
		}
	}
	sort.Slice(completions, func(i, j int) bool { return completions[i].After(completions[j]) })

	today := calendarDay(now, now.Location())
	streak := 0
	for _, at := range completions {
		daysDiff := int(today.Sub(calendarDay(at, now.Location())).Hours() / 24)
		if daysDiff == streak {
			streak++
		} else if daysDiff > streak {
			break
		}
	}
	return streak
}

// calendarDay maps t to midnight UTC of its date in loc, so day
// differences are whole multiples of 24h regardless of DST.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Weekly buckets sessions by the Sunday starting their week and returns
// the latest WeeklyBuckets buckets in ascending order.
func Weekly(sessions []domain.ExerciseSession, loc *time.Location) []domain.WeeklyProgress {
	buckets := make(map[string]*domain.WeeklyProgress)
	for _, sess := range sessions {
		day := calendarDay(sess.SessionStart, loc)
		week := day.AddDate(0, 0, -int(day.Weekday())).Format("2006-01-02")

		b, ok := buckets[week]
		if !ok {
			b = &domain.WeeklyProgress{Week: week}
			buckets[week] = b
		}
		if sess.Completed {
			b.ExercisesCompleted++
		}
		b.TimeSpentMs += sess.DurationMs
	}

	out := make([]domain.WeeklyProgress, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	if len(out) > WeeklyBuckets {
		out = out[len(out)-WeeklyBuckets:]
	}
	return out
}
