// Package search ranks catalog exercises against a free-text query.
//
// Hard filters run first (categories, difficulties, tags, completion),
// then every surviving item is scored field by field. The empty query is
// a substring of every field, so it matches the whole filtered catalog.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/felixgeelhaar/practicum/internal/cache"
	"github.com/felixgeelhaar/practicum/internal/catalog"
	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/metrics"
)

// Sort keys
const (
	SortRelevance  = "relevance"
	SortDifficulty = "difficulty"
	SortCategory   = "category"
	SortRecent     = "recent"
	SortPopular    = "popular"
)

// Sort orders
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// HighlightRunes is how much of a matching description is quoted
const HighlightRunes = 100

// Matched field names
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldTags        = "tags"
	FieldDifficulty  = "difficulty"
)

// Options selects and orders search results
type Options struct {
	Query            string              `json:"query"`
	Categories       []string            `json:"categories,omitempty"`
	Difficulties     []domain.Difficulty `json:"difficulties,omitempty"`
	Tags             []string            `json:"tags,omitempty"`
	IncludeCompleted bool                `json:"includeCompleted"`
	SortBy           string              `json:"sortBy,omitempty"`
	SortOrder        string              `json:"sortOrder,omitempty"`
	Limit            int                 `json:"limit,omitempty"`
}

// CompletionSource reports completed progress records
type CompletionSource interface {
	Completed() []domain.ExerciseProgress
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger for catalog failures
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCache memoizes search results under the "search" prefix
func WithCache(c *cache.Cache[[]domain.SearchResult]) Option {
	return func(e *Engine) {
		e.memo = c
	}
}

// WithScope limits the searched catalog scope
func WithScope(scope string) Option {
	return func(e *Engine) {
		e.scope = scope
	}
}

// Engine searches a catalog
type Engine struct {
	catalog  catalog.Catalog
	progress CompletionSource
	memo     *cache.Cache[[]domain.SearchResult]
	scope    string
	logger   *slog.Logger
}

// NewEngine creates a search engine
func NewEngine(c catalog.Catalog, progress CompletionSource, opts ...Option) *Engine {
	e := &Engine{
		catalog:  c,
		progress: progress,
		scope:    catalog.ScopeAll,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns ranked matches. A catalog failure is logged and yields
// no results.
func (e *Engine) Search(ctx context.Context, opts Options) []domain.SearchResult {
	if opts.SortBy == "" {
		opts.SortBy = SortRelevance
	}
	if opts.SortOrder == "" {
		opts.SortOrder = OrderDesc
	}
	metrics.SearchQueries.Inc()

	results, err := e.memo.GetOrCompute("search", opts, func() ([]domain.SearchResult, error) {
		items, err := e.catalog.ListExercises(ctx, e.scope)
		if err != nil {
			return nil, err
		}
		return Rank(items, e.progress.Completed(), opts), nil
	})
	if err != nil {
		e.logger.Error("catalog unavailable, returning no search results",
			"query", opts.Query, "scope", e.scope, "error", err)
		metrics.CatalogErrors.Inc()
		return []domain.SearchResult{}
	}
	metrics.SearchResults.Observe(float64(len(results)))
	return results
}

// Rank filters, scores, sorts and truncates items for opts
func Rank(items []domain.ExerciseMeta, completed []domain.ExerciseProgress, opts Options) []domain.SearchResult {
	done := make(map[string]bool, len(completed))
	for _, p := range completed {
		done[p.ExerciseID] = true
	}

	results := make([]domain.SearchResult, 0, len(items))
	for _, ex := range items {
		if !passesFilters(ex, opts, done) {
			continue
		}
		if r := Score(ex, opts.Query); r.RelevanceScore > 0 {
			results = append(results, r)
		}
	}

	sortResults(results, opts.SortBy, opts.SortOrder)
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

func passesFilters(ex domain.ExerciseMeta, opts Options, done map[string]bool) bool {
	if len(opts.Categories) > 0 && !containsString(opts.Categories, ex.Category) {
		return false
	}
	if len(opts.Difficulties) > 0 {
		found := false
		for _, d := range opts.Difficulties {
			if d == ex.Difficulty {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, tag := range opts.Tags {
		if !ex.HasTag(tag) {
			return false
		}
	}
	if !opts.IncludeCompleted && (done[ex.Key()] || (ex.Href != "" && done[ex.Href])) {
		return false
	}
	return true
}

// Score computes the relevance of one exercise for query
func Score(ex domain.ExerciseMeta, query string) domain.SearchResult {
	q := strings.ToLower(query)
	var terms []string
	for _, term := range strings.Fields(q) {
		if len(term) > 2 {
			terms = append(terms, term)
		}
	}

	r := domain.SearchResult{Exercise: ex, MatchedFields: []string{}}

	title := strings.ToLower(ex.Title)
	if strings.Contains(title, q) {
		r.RelevanceScore += 1.0
		r.MatchedFields = append(r.MatchedFields, FieldTitle)
		r.Highlight = ex.Title
	} else if n := countTerms(title, terms); n > 0 {
		r.RelevanceScore += float64(n) * 0.3
		r.MatchedFields = append(r.MatchedFields, FieldTitle)
	}

	if ex.Description != "" {
		desc := strings.ToLower(ex.Description)
		if strings.Contains(desc, q) {
			r.RelevanceScore += 0.7
			r.MatchedFields = append(r.MatchedFields, FieldDescription)
			if r.Highlight == "" {
				r.Highlight = excerpt(ex.Description)
			}
		} else if n := countTerms(desc, terms); n > 0 {
			r.RelevanceScore += float64(n) * 0.2
			r.MatchedFields = append(r.MatchedFields, FieldDescription)
		}
	}

	if ex.Category != "" && strings.Contains(strings.ToLower(ex.Category), q) {
		r.RelevanceScore += 0.5
		r.MatchedFields = append(r.MatchedFields, FieldCategory)
	}

	tagHits := 0
	for _, tag := range ex.Tags {
		t := strings.ToLower(tag)
		if strings.Contains(t, q) || countTerms(t, terms) > 0 {
			tagHits++
		}
	}
	if tagHits > 0 {
		r.RelevanceScore += float64(tagHits) * 0.3
		r.MatchedFields = append(r.MatchedFields, FieldTags)
	}

	if ex.Difficulty != "" && strings.Contains(strings.ToLower(string(ex.Difficulty)), q) {
		r.RelevanceScore += 0.2
		r.MatchedFields = append(r.MatchedFields, FieldDifficulty)
	}
	return r
}

func countTerms(text string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			n++
		}
	}
	return n
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) > HighlightRunes {
		runes = runes[:HighlightRunes]
	}
	return string(runes) + "…"
}

// sortResults is stable. recent and popular keep the scored order.
func sortResults(results []domain.SearchResult, by, order string) {
	var cmp func(a, b domain.SearchResult) int
	switch by {
	case SortDifficulty:
		cmp = func(a, b domain.SearchResult) int {
			return a.Exercise.Difficulty.Level() - b.Exercise.Difficulty.Level()
		}
	case SortCategory:
		cmp = func(a, b domain.SearchResult) int {
			return strings.Compare(a.Exercise.Category, b.Exercise.Category)
		}
	case SortRecent, SortPopular:
		return
	default:
		cmp = func(a, b domain.SearchResult) int {
			switch {
			case a.RelevanceScore < b.RelevanceScore:
				return -1
			case a.RelevanceScore > b.RelevanceScore:
				return 1
			}
			return 0
		}
	}

	desc := order != OrderAsc
	sort.SliceStable(results, func(i, j int) bool {
		c := cmp(results[i], results[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
