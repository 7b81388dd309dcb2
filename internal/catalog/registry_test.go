package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/practicum/internal/catalog"
	"github.com/felixgeelhaar/practicum/internal/domain"
)

func setupRegistry(t *testing.T) *catalog.Registry {
	t.Helper()

	registry := catalog.NewRegistry(catalog.NewLoader("testdata"))
	if err := registry.Load(); err != nil {
		t.Fatalf("Failed to load exercises: %v", err)
	}
	return registry
}

func TestRegistry_Load(t *testing.T) {
	registry := setupRegistry(t)

	stats := registry.Stats()
	if stats.PackCount != 2 {
		t.Errorf("PackCount = %d, want 2", stats.PackCount)
	}
	if stats.ExerciseCount != 5 {
		t.Errorf("ExerciseCount = %d, want 5", stats.ExerciseCount)
	}
	if stats.ByDifficulty["beginner"] != 2 {
		t.Errorf("ByDifficulty[beginner] = %d, want 2", stats.ByDifficulty["beginner"])
	}
}

func TestRegistry_ListExercises(t *testing.T) {
	registry := setupRegistry(t)
	ctx := context.Background()

	all, err := registry.ListExercises(ctx, catalog.ScopeAll)
	if err != nil {
		t.Fatalf("ListExercises() error = %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len(all) = %d, want 5", len(all))
	}
	if all[0].ID != "algorithms/sorting-basics" {
		t.Errorf("all[0].ID = %q, want catalog order", all[0].ID)
	}

	web, err := registry.ListExercises(ctx, "/exercises/web")
	if err != nil {
		t.Fatalf("ListExercises() error = %v", err)
	}
	if len(web) != 2 {
		t.Errorf("len(web) = %d, want 2", len(web))
	}
}

func TestRegistry_ListExercises_NotLoaded(t *testing.T) {
	registry := catalog.NewRegistry(catalog.NewLoader("testdata"))
	if _, err := registry.ListExercises(context.Background(), ""); err == nil {
		t.Error("ListExercises() should fail before Load")
	}
}

func TestRegistry_ListExercises_Cancelled(t *testing.T) {
	registry := setupRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := registry.ListExercises(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("ListExercises() error = %v, want context.Canceled", err)
	}
}

func TestRegistry_GetExercise(t *testing.T) {
	registry := setupRegistry(t)

	ex, err := registry.GetExercise("web/html-basics")
	if err != nil {
		t.Fatalf("GetExercise() error = %v", err)
	}
	if ex.Title != "HTML Basics" {
		t.Errorf("Title = %q", ex.Title)
	}

	_, err = registry.GetExercise("web/missing")
	if !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("GetExercise() error = %v, want ErrExerciseNotFound", err)
	}
}

func TestRegistry_ListPacks(t *testing.T) {
	registry := setupRegistry(t)

	packs := registry.ListPacks()
	if len(packs) != 2 {
		t.Fatalf("len(packs) = %d, want 2", len(packs))
	}
	if packs[0].ID != "algorithms" || packs[1].ID != "web" {
		t.Errorf("packs = %s, %s; want sorted by ID", packs[0].ID, packs[1].ID)
	}
}

func TestRegistry_ListPackExercises(t *testing.T) {
	registry := setupRegistry(t)

	exercises, err := registry.ListPackExercises("web")
	if err != nil {
		t.Fatalf("ListPackExercises() error = %v", err)
	}
	if len(exercises) != 2 {
		t.Errorf("len(exercises) = %d, want 2", len(exercises))
	}

	if _, err := registry.ListPackExercises("nope"); err == nil {
		t.Error("ListPackExercises() should fail for unknown pack")
	}
}

func TestRegistry_GetNextExercise(t *testing.T) {
	registry := setupRegistry(t)

	next, ok, err := registry.GetNextExercise("algorithms/sorting-basics")
	if err != nil {
		t.Fatalf("GetNextExercise() error = %v", err)
	}
	if !ok || next.ID != "algorithms/binary-search" {
		t.Errorf("GetNextExercise() = %q, %v; want algorithms/binary-search", next.ID, ok)
	}

	_, ok, err = registry.GetNextExercise("algorithms/graph-traversal")
	if err != nil {
		t.Fatalf("GetNextExercise() error = %v", err)
	}
	if ok {
		t.Error("last exercise should have no next")
	}

	_, _, err = registry.GetNextExercise("nope")
	if !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("GetNextExercise() error = %v, want ErrExerciseNotFound", err)
	}
}

func TestRegistry_Reload(t *testing.T) {
	registry := setupRegistry(t)
	if err := registry.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := registry.Stats().ExerciseCount; got != 5 {
		t.Errorf("ExerciseCount after reload = %d, want 5", got)
	}
}

func TestRegistry_ListExercisesLoadsLazily(t *testing.T) {
	registry := catalog.NewRegistry(catalog.NewLoader("testdata"))

	items, err := registry.ListExercises(context.Background(), catalog.ScopeAll)
	if err != nil {
		t.Fatalf("ListExercises() error = %v", err)
	}
	if len(items) != 5 {
		t.Errorf("len = %d, want 5", len(items))
	}

	missing := catalog.NewRegistry(catalog.NewLoader("testdata/missing"))
	if _, err := missing.ListExercises(context.Background(), catalog.ScopeAll); err == nil {
		t.Error("ListExercises() should fail for a missing catalog directory")
	}
}
