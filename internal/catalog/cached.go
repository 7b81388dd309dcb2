package catalog

import (
	"context"

	"github.com/felixgeelhaar/practicum/internal/cache"
	"github.com/felixgeelhaar/practicum/internal/domain"
)

// Cached memoizes listings per scope
type Cached struct {
	inner Catalog
	memo  *cache.Cache[[]domain.ExerciseMeta]
}

var _ Catalog = (*Cached)(nil)

// NewCached wraps inner with a listing cache
func NewCached(inner Catalog, opts ...cache.Option) *Cached {
	return &Cached{
		inner: inner,
		memo:  cache.New[[]domain.ExerciseMeta]("catalog", opts...),
	}
}

// ListExercises returns the memoized listing or fetches it.
// Failed listings are not memoized.
func (c *Cached) ListExercises(ctx context.Context, scope string) ([]domain.ExerciseMeta, error) {
	return c.memo.GetOrCompute("all-exercises", scope, func() ([]domain.ExerciseMeta, error) {
		return c.inner.ListExercises(ctx, scope)
	})
}

// Invalidate drops every memoized listing
func (c *Cached) Invalidate() {
	c.memo.Clear()
}

// Stats reports cache efficiency
func (c *Cached) Stats() cache.Stats {
	return c.memo.Stats()
}
