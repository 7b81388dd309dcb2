package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/felixgeelhaar/practicum/internal/cache"
	"github.com/felixgeelhaar/practicum/internal/domain"
)

// Sort keys accepted by FilterOptions.SortBy
const (
	SortByTitle         = "title"
	SortByDifficulty    = "difficulty"
	SortByEstimatedTime = "estimatedTime"
)

// FilterOptions narrows and orders a catalog listing.
// Difficulty and Category compare case-insensitively; the value "all"
// disables the filter. Every tag in Tags must be present.
type FilterOptions struct {
	Query      string   `json:"searchQuery,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	Category   string   `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	SortBy     string   `json:"sortBy,omitempty"`
	SortOrder  string   `json:"sortOrder,omitempty"`
}

// Stats summarizes a catalog scope
type Stats struct {
	TotalExercises      int            `json:"totalExercises"`
	TotalCategories     int            `json:"totalCategories"`
	DifficultyBreakdown map[string]int `json:"difficultyBreakdown"`
	CategoryBreakdown   map[string]int `json:"categoryBreakdown"`
	TagBreakdown        map[string]int `json:"tagBreakdown"`
}

// Breadcrumb is one step of a catalog path
type Breadcrumb struct {
	Title string `json:"title"`
	Href  string `json:"href"`
}

// Content answers listing queries over a Catalog and memoizes each answer
type Content struct {
	catalog  Catalog
	listings *cache.Cache[[]domain.ExerciseMeta]
	stats    *cache.Cache[Stats]
	labels   *cache.Cache[[]string]
}

// NewContent creates a content service. Cache options apply to every
// memo it keeps.
func NewContent(c Catalog, opts ...cache.Option) *Content {
	return &Content{
		catalog:  c,
		listings: cache.New[[]domain.ExerciseMeta]("content_listings", opts...),
		stats:    cache.New[Stats]("content_stats", opts...),
		labels:   cache.New[[]string]("content_labels", opts...),
	}
}

type filterKey struct {
	Scope   string        `json:"contentPath"`
	Options FilterOptions `json:"options"`
}

// FilteredExercises lists scope, filtered and sorted per opts
func (c *Content) FilteredExercises(ctx context.Context, scope string, opts FilterOptions) ([]domain.ExerciseMeta, error) {
	return c.listings.GetOrCompute("filtered-exercises", filterKey{Scope: scope, Options: opts}, func() ([]domain.ExerciseMeta, error) {
		items, err := c.catalog.ListExercises(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("list exercises: %w", err)
		}
		return Filter(items, opts), nil
	})
}

// Stats computes counts over scope
func (c *Content) Stats(ctx context.Context, scope string) (Stats, error) {
	return c.stats.GetOrCompute("exercise-stats", scope, func() (Stats, error) {
		items, err := c.catalog.ListExercises(ctx, scope)
		if err != nil {
			return Stats{}, fmt.Errorf("list exercises: %w", err)
		}
		return ComputeStats(items), nil
	})
}

// AvailableTags returns every tag in scope, sorted and unique
func (c *Content) AvailableTags(ctx context.Context, scope string) ([]string, error) {
	return c.labels.GetOrCompute("available-tags", scope, func() ([]string, error) {
		items, err := c.catalog.ListExercises(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("list exercises: %w", err)
		}
		var tags []string
		for _, item := range items {
			tags = append(tags, item.Tags...)
		}
		return sortedUnique(tags), nil
	})
}

// AvailableCategories returns every non-empty category in scope, sorted
func (c *Content) AvailableCategories(ctx context.Context, scope string) ([]string, error) {
	return c.labels.GetOrCompute("available-categories", scope, func() ([]string, error) {
		items, err := c.catalog.ListExercises(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("list exercises: %w", err)
		}
		cats := make([]string, 0, len(items))
		for _, item := range items {
			cats = append(cats, item.Category)
		}
		return sortedUnique(cats), nil
	})
}

// ClearCache drops every memoized answer
func (c *Content) ClearCache() {
	c.listings.Clear()
	c.stats.Clear()
	c.labels.Clear()
}

// Filter applies opts to items without touching the input slice
func Filter(items []domain.ExerciseMeta, opts FilterOptions) []domain.ExerciseMeta {
	out := make([]domain.ExerciseMeta, 0, len(items))
	query := strings.ToLower(opts.Query)

	for _, item := range items {
		if query != "" && !matchesQuery(item, query) {
			continue
		}
		if opts.Difficulty != "" && opts.Difficulty != "all" &&
			!strings.EqualFold(string(item.Difficulty), opts.Difficulty) {
			continue
		}
		if opts.Category != "" && opts.Category != "all" &&
			!strings.EqualFold(item.Category, opts.Category) {
			continue
		}
		if !hasAllTagsFold(item, opts.Tags) {
			continue
		}
		out = append(out, item)
	}

	if opts.SortBy != "" {
		desc := opts.SortOrder == "desc"
		sort.SliceStable(out, func(i, j int) bool {
			cmp := compareBy(opts.SortBy, out[i], out[j])
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	return out
}

func matchesQuery(item domain.ExerciseMeta, query string) bool {
	if strings.Contains(strings.ToLower(item.Title), query) ||
		strings.Contains(strings.ToLower(item.Description), query) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func hasAllTagsFold(item domain.ExerciseMeta, tags []string) bool {
	for _, want := range tags {
		found := false
		for _, have := range item.Tags {
			if strings.EqualFold(have, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func compareBy(key string, a, b domain.ExerciseMeta) int {
	switch key {
	case SortByTitle:
		return strings.Compare(a.Title, b.Title)
	case SortByDifficulty:
		return difficultyOrder(a.Difficulty) - difficultyOrder(b.Difficulty)
	case SortByEstimatedTime:
		return EstimatedMinutes(a.EstimatedTime) - EstimatedMinutes(b.EstimatedTime)
	default:
		return 0
	}
}

// difficultyOrder ranks unknown labels before beginner
func difficultyOrder(d domain.Difficulty) int {
	if !d.IsValid() {
		return 0
	}
	return d.Level()
}

var digitsRe = regexp.MustCompile(`\d+`)

// EstimatedMinutes extracts the first number from a label like "15 min"
func EstimatedMinutes(label string) int {
	m := digitsRe.FindString(label)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// ComputeStats counts items by difficulty, category and tag
func ComputeStats(items []domain.ExerciseMeta) Stats {
	s := Stats{
		TotalExercises:      len(items),
		DifficultyBreakdown: make(map[string]int),
		CategoryBreakdown:   make(map[string]int),
		TagBreakdown:        make(map[string]int),
	}
	categories := make(map[string]struct{})

	for _, item := range items {
		diff := string(item.Difficulty)
		if diff == "" {
			diff = "unspecified"
		}
		s.DifficultyBreakdown[diff]++

		cat := item.Category
		if cat == "" {
			cat = "uncategorized"
		} else {
			categories[cat] = struct{}{}
		}
		s.CategoryBreakdown[cat]++

		for _, tag := range item.Tags {
			s.TagBreakdown[tag]++
		}
	}
	s.TotalCategories = len(categories)
	return s
}

// Breadcrumbs splits an exercise href into navigable steps, starting at
// the catalog root.
func Breadcrumbs(href string) []Breadcrumb {
	rest := strings.TrimPrefix(href, "/exercises")
	crumbs := []Breadcrumb{{Title: "Exercises", Href: "/exercises"}}

	current := ""
	for _, seg := range strings.Split(rest, "/") {
		if seg == "" {
			continue
		}
		current += "/" + seg
		crumbs = append(crumbs, Breadcrumb{
			Title: segmentTitle(seg),
			Href:  "/exercises" + current,
		})
	}
	return crumbs
}

func segmentTitle(seg string) string {
	r := []rune(strings.ReplaceAll(seg, "-", " "))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func sortedUnique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
