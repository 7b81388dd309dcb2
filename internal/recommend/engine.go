// Package recommend ranks catalog exercises for a learner with a
// deterministic, rule-weighted scorer. Every score comes with the
// human-readable reasons that produced it.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/practicum/internal/cache"
	"github.com/felixgeelhaar/practicum/internal/catalog"
	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/metrics"
)

// Defaults
const (
	DefaultMaxRecommendations = 10
	DefaultRelatedLimit       = 5
	RecentActivityWindow      = 7 * 24 * time.Hour
)

// ProgressReader is the read side of the progress store
type ProgressReader interface {
	All() []domain.ExerciseProgress
}

// Settings selects which rules contribute to a recommendation score
type Settings struct {
	ConsiderProgress   bool `json:"considerProgress"`
	ConsiderBookmarks  bool `json:"considerBookmarks"`
	ConsiderDifficulty bool `json:"considerDifficulty"`
	ConsiderCategory   bool `json:"considerCategory"`
	ConsiderTags       bool `json:"considerTags"`
	MaxRecommendations int  `json:"maxRecommendations"`
	IncludeCompleted   bool `json:"includeCompleted"`
}

// DefaultSettings enables every rule
func DefaultSettings() Settings {
	return Settings{
		ConsiderProgress:   true,
		ConsiderBookmarks:  true,
		ConsiderDifficulty: true,
		ConsiderCategory:   true,
		ConsiderTags:       true,
		MaxRecommendations: DefaultMaxRecommendations,
	}
}

// Option configures an Engine
type Option func(*Engine)

// WithClock injects the time source used for recency
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger for catalog failures
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCache memoizes results. Memoized results ignore progress changes
// until they expire.
func WithCache(c *cache.Cache[[]domain.Recommendation]) Option {
	return func(e *Engine) {
		e.memo = c
	}
}

// WithScope limits the catalog scope the engine ranks
func WithScope(scope string) Option {
	return func(e *Engine) {
		e.scope = scope
	}
}

// Engine produces recommendations, related exercises and learning paths
type Engine struct {
	catalog  catalog.Catalog
	progress ProgressReader
	memo     *cache.Cache[[]domain.Recommendation]
	scope    string
	now      func() time.Time
	logger   *slog.Logger
}

// NewEngine creates an engine over a catalog and a progress reader
func NewEngine(c catalog.Catalog, progress ProgressReader, opts ...Option) *Engine {
	e := &Engine{
		catalog:  c,
		progress: progress,
		scope:    catalog.ScopeAll,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetRecommendations ranks every catalog exercise for the learner.
// A catalog failure is logged and yields no recommendations.
func (e *Engine) GetRecommendations(ctx context.Context, settings Settings) []domain.Recommendation {
	if settings.MaxRecommendations <= 0 {
		settings.MaxRecommendations = DefaultMaxRecommendations
	}
	return e.memoized("recommendations", settings, "personal", func() ([]domain.Recommendation, error) {
		items, err := e.catalog.ListExercises(ctx, e.scope)
		if err != nil {
			return nil, err
		}
		return rankRecommendations(items, e.progress.All(), settings, e.now()), nil
	})
}

// GetRelatedExercises ranks exercises similar to id. An unknown id
// yields no results; limit <= 0 means DefaultRelatedLimit.
func (e *Engine) GetRelatedExercises(ctx context.Context, id string, limit int) []domain.Recommendation {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	params := struct {
		ID    string `json:"id"`
		Limit int    `json:"limit"`
	}{id, limit}

	return e.memoized("related", params, "related", func() ([]domain.Recommendation, error) {
		items, err := e.catalog.ListExercises(ctx, e.scope)
		if err != nil {
			return nil, err
		}
		return rankRelated(items, id, limit), nil
	})
}

// GetLearningPath orders uncompleted exercises by how well they extend
// the learner's level. category and difficulty are optional.
func (e *Engine) GetLearningPath(ctx context.Context, category string, difficulty domain.Difficulty) []domain.Recommendation {
	params := struct {
		Category   string            `json:"category"`
		Difficulty domain.Difficulty `json:"difficulty"`
	}{category, difficulty}

	return e.memoized("learning-path", params, "path", func() ([]domain.Recommendation, error) {
		items, err := e.catalog.ListExercises(ctx, e.scope)
		if err != nil {
			return nil, err
		}
		return rankLearningPath(items, e.progress.All(), category, difficulty), nil
	})
}

func (e *Engine) memoized(prefix string, params any, kind string, compute func() ([]domain.Recommendation, error)) []domain.Recommendation {
	recs, err := e.memo.GetOrCompute(prefix, params, compute)
	if err != nil {
		e.logger.Error("catalog unavailable, returning no recommendations",
			"kind", kind, "scope", e.scope, "error", err)
		metrics.CatalogErrors.Inc()
		return []domain.Recommendation{}
	}
	metrics.RecommendationsServed.WithLabelValues(kind).Inc()
	return recs
}

// -----------------------------------------------------------------------------
// Scoring
// -----------------------------------------------------------------------------

type learnerView struct {
	all            []domain.ExerciseProgress
	completed      map[string]bool
	tags           map[string]bool
	bookmarkedCats map[string]bool
	recentlyActive bool
}

func newLearnerView(progress []domain.ExerciseProgress, now time.Time) learnerView {
	v := learnerView{
		all:            progress,
		completed:      make(map[string]bool),
		tags:           make(map[string]bool),
		bookmarkedCats: make(map[string]bool),
	}
	for _, p := range progress {
		if p.IsCompleted {
			v.completed[p.ExerciseID] = true
		}
		for _, t := range p.Tags {
			v.tags[t] = true
		}
		if p.IsBookmarked && p.Category != "" {
			v.bookmarkedCats[p.Category] = true
		}
		if now.Sub(p.LastAccessedAt) < RecentActivityWindow {
			v.recentlyActive = true
		}
	}
	return v
}

func (v learnerView) isCompleted(m domain.ExerciseMeta) bool {
	return v.completed[m.Key()] || (m.Href != "" && v.completed[m.Href])
}

func rankRecommendations(items []domain.ExerciseMeta, progress []domain.ExerciseProgress, s Settings, now time.Time) []domain.Recommendation {
	view := newLearnerView(progress, now)
	recs := make([]domain.Recommendation, 0, len(items))

	for _, ex := range items {
		if view.isCompleted(ex) && !s.IncludeCompleted {
			continue
		}
		if rec := scoreRecommendation(ex, view, s); rec.Score > 0 {
			recs = append(recs, rec)
		}
	}

	sortByScore(recs)
	if len(recs) > s.MaxRecommendations {
		recs = recs[:s.MaxRecommendations]
	}
	return recs
}

func scoreRecommendation(ex domain.ExerciseMeta, view learnerView, s Settings) domain.Recommendation {
	score := 0.1
	var reasons []string

	if s.ConsiderCategory && ex.Category != "" {
		var total int64
		n := 0
		for _, p := range view.all {
			if p.Category == ex.Category {
				total += p.TimeSpentMs
				n++
			}
		}
		if n > 0 {
			avg := float64(total) / float64(n)
			score += math.Min(avg/float64((5*time.Minute).Milliseconds()), 0.3)
			reasons = append(reasons, fmt.Sprintf("Active in %s category", ex.Category))
		}
	}

	if s.ConsiderDifficulty {
		level := EstimateUserLevel(view.all, ex.Category)
		exLevel := ex.Difficulty.Level()
		if abs(level-exLevel) <= 1 {
			score += 0.4
			reasons = append(reasons, "Appropriate difficulty level")
		} else if exLevel == level+1 {
			score += 0.2
			reasons = append(reasons, "Next difficulty level")
		}
	}

	if s.ConsiderTags {
		var common []string
		for _, t := range ex.Tags {
			if view.tags[t] {
				common = append(common, t)
			}
		}
		if len(common) > 0 {
			score += float64(len(common)) * 0.1
			reasons = append(reasons, "Matches interests: "+strings.Join(common, ", "))
		}
	}

	if s.ConsiderBookmarks && ex.Category != "" && view.bookmarkedCats[ex.Category] {
		score += 0.2
		reasons = append(reasons, "Similar to bookmarked exercises")
	}

	if s.ConsiderProgress && view.recentlyActive {
		score += 0.1
		reasons = append(reasons, "Continuing recent learning momentum")
	}

	return newRecommendation(ex, score, reasons)
}

func rankRelated(items []domain.ExerciseMeta, id string, limit int) []domain.Recommendation {
	target, ok := catalog.Find(items, id)
	if !ok {
		return []domain.Recommendation{}
	}
	targetKeywords := ExtractKeywords(target.Title + " " + target.Description)

	related := make([]domain.Recommendation, 0, len(items))
	for _, ex := range items {
		if ex.Key() == target.Key() {
			continue
		}
		score, reasons := similarity(target, targetKeywords, ex)
		if score > 0.1 {
			related = append(related, domain.Recommendation{
				Exercise:   ex,
				Score:      score,
				Reasons:    reasons,
				Confidence: score,
			})
		}
	}

	sortByScore(related)
	if len(related) > limit {
		related = related[:limit]
	}
	return related
}

func similarity(a domain.ExerciseMeta, aKeywords []string, b domain.ExerciseMeta) (float64, []string) {
	score := 0.0
	var reasons []string

	if a.Category != "" && a.Category == b.Category {
		score += 0.4
		reasons = append(reasons, "Same category")
	}
	if a.Difficulty != "" && a.Difficulty == b.Difficulty {
		score += 0.2
		reasons = append(reasons, "Same difficulty")
	}

	var common []string
	for _, t := range a.Tags {
		if b.HasTag(t) {
			common = append(common, t)
		}
	}
	if len(common) > 0 {
		score += float64(len(common)) * 0.1
		reasons = append(reasons, "Common topics: "+strings.Join(common, ", "))
	}

	bKeywords := ExtractKeywords(b.Title + " " + b.Description)
	shared := 0
	for _, k := range aKeywords {
		if contains(bKeywords, k) {
			shared++
		}
	}
	if shared > 0 {
		score += math.Min(float64(shared)*0.05, 0.2)
		reasons = append(reasons, "Similar content")
	}
	return score, reasons
}

func rankLearningPath(items []domain.ExerciseMeta, progress []domain.ExerciseProgress, category string, target domain.Difficulty) []domain.Recommendation {
	view := newLearnerView(progress, time.Time{})
	path := make([]domain.Recommendation, 0, len(items))

	for _, ex := range items {
		if category != "" && ex.Category != category {
			continue
		}
		if view.isCompleted(ex) {
			continue
		}

		score := 0.0
		var reasons []string

		level := EstimateUserLevel(view.all, ex.Category)
		switch ex.Difficulty.Level() {
		case level + 1:
			score += 0.8
			reasons = append(reasons, "Next logical difficulty step")
		case level:
			score += 0.6
			reasons = append(reasons, "Reinforces current level")
		case level - 1:
			score += 0.3
			reasons = append(reasons, "Good for review")
		}

		if target != "" && ex.Difficulty == target {
			score += 0.4
			reasons = append(reasons, fmt.Sprintf("Matches target difficulty: %s", target))
		}

		for _, p := range view.all {
			if p.Category == ex.Category {
				score += 0.2
				reasons = append(reasons, "Builds on existing knowledge")
				break
			}
		}

		if score > 0 {
			path = append(path, newRecommendation(ex, score, reasons))
		}
	}

	sortByScore(path)
	return path
}

func newRecommendation(ex domain.ExerciseMeta, score float64, reasons []string) domain.Recommendation {
	if reasons == nil {
		reasons = []string{}
	}
	return domain.Recommendation{
		Exercise:   ex,
		Score:      score,
		Reasons:    reasons,
		Confidence: math.Min(score, 1),
	}
}

// sortByScore orders by descending score, keeping catalog order on ties
func sortByScore(recs []domain.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
