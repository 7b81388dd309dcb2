// Package catalog provides read-only access to exercise metadata.
package catalog

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/practicum/internal/domain"
)

// ScopeAll lists the whole catalog
const ScopeAll = "exercises"

// Catalog lists exercise metadata for a path or scope.
// An empty scope or ScopeAll lists everything.
type Catalog interface {
	ListExercises(ctx context.Context, scope string) ([]domain.ExerciseMeta, error)
}

// Func adapts a plain function to the Catalog interface
type Func func(ctx context.Context, scope string) ([]domain.ExerciseMeta, error)

// ListExercises calls f
func (f Func) ListExercises(ctx context.Context, scope string) ([]domain.ExerciseMeta, error) {
	return f(ctx, scope)
}

// Static serves a fixed in-memory list
type Static struct {
	items []domain.ExerciseMeta
}

// NewStatic creates a catalog over items
func NewStatic(items ...domain.ExerciseMeta) *Static {
	return &Static{items: append([]domain.ExerciseMeta(nil), items...)}
}

// ListExercises returns the items within scope
func (s *Static) ListExercises(ctx context.Context, scope string) ([]domain.ExerciseMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FilterScope(s.items, scope), nil
}

// InScope reports whether meta belongs to scope. Scopes match on the id
// prefix ("algorithms" matches "algorithms/sorting") or the href prefix
// ("/exercises/algorithms").
func InScope(meta domain.ExerciseMeta, scope string) bool {
	scope = strings.Trim(scope, "/")
	if scope == "" || scope == ScopeAll {
		return true
	}
	if meta.ID == scope || strings.HasPrefix(meta.ID, scope+"/") {
		return true
	}
	href := strings.Trim(meta.Href, "/")
	return href == scope || strings.HasPrefix(href, scope+"/")
}

// FilterScope returns the items within scope, preserving order
func FilterScope(items []domain.ExerciseMeta, scope string) []domain.ExerciseMeta {
	out := make([]domain.ExerciseMeta, 0, len(items))
	for _, item := range items {
		if InScope(item, scope) {
			out = append(out, item)
		}
	}
	return out
}

// Find returns the item whose key or href equals id
func Find(items []domain.ExerciseMeta, id string) (domain.ExerciseMeta, bool) {
	for _, item := range items {
		if item.Key() == id || item.Href == id {
			return item, true
		}
	}
	return domain.ExerciseMeta{}, false
}

var (
	_ Catalog = (*Static)(nil)
	_ Catalog = Func(nil)
)
