package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/practicum/internal/app"
	"github.com/felixgeelhaar/practicum/internal/config"
	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/storage"
)

// setupTestServer creates a test MCP server over the catalog testdata
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultLocalConfig()
	cfg.Storage.Backend = config.BackendMemory
	cfg.Catalog.Path = filepath.Join("..", "catalog", "testdata")

	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	a, err := app.New(context.Background(), cfg,
		app.WithStorage(storage.NewMemory()),
		app.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	return NewServer(Config{App: a, Version: "test"})
}

func TestNewServer(t *testing.T) {
	server := setupTestServer(t)

	if server.GetMCPServer() == nil {
		t.Fatal("expected non-nil underlying MCP server")
	}
}

func TestHandleCatalog(t *testing.T) {
	server := setupTestServer(t)

	out, err := server.handleCatalog(context.Background(), CatalogInput{Category: "algorithms", SortBy: "difficulty"})
	if err != nil {
		t.Fatalf("handleCatalog() error = %v", err)
	}
	if out.Total != 3 || len(out.Exercises) != 3 {
		t.Fatalf("Total = %d, want 3", out.Total)
	}
	if out.Exercises[0].Difficulty != domain.DifficultyBeginner {
		t.Errorf("first difficulty = %q, want beginner", out.Exercises[0].Difficulty)
	}
}

func TestHandleSearch(t *testing.T) {
	server := setupTestServer(t)

	out, err := server.handleSearch(context.Background(), SearchInput{Query: "sorting"})
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if len(out.Results) == 0 || out.Results[0].Exercise.Title != "Array Sorting Basics" {
		t.Fatalf("Results = %+v", out.Results)
	}
	if !out.Results[0].HasField("title") {
		t.Errorf("MatchedFields = %v, want title", out.Results[0].MatchedFields)
	}
}

func TestProgressTools(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()
	id := "algorithms/sorting-basics"

	if _, err := server.handleProgress(ctx, ProgressInput{ExerciseID: id, Percent: 10}); !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("handleProgress() before start error = %v, want ErrExerciseNotFound", err)
	}

	start, err := server.handleStart(ctx, ExerciseInput{ExerciseID: id})
	if err != nil {
		t.Fatalf("handleStart() error = %v", err)
	}
	if start.Progress == nil || start.Progress.ExerciseID != id {
		t.Fatalf("handleStart() = %+v", start)
	}

	prog, err := server.handleProgress(ctx, ProgressInput{ExerciseID: id, Percent: 40})
	if err != nil {
		t.Fatalf("handleProgress() error = %v", err)
	}
	if prog.Progress.ReadingProgress != 40 {
		t.Errorf("ReadingProgress = %v, want 40", prog.Progress.ReadingProgress)
	}

	if _, err := server.handleNote(ctx, NoteInput{ExerciseID: id, Note: "revisit merge sort"}); err != nil {
		t.Fatalf("handleNote() error = %v", err)
	}

	bm, err := server.handleBookmark(ctx, ExerciseInput{ExerciseID: id})
	if err != nil {
		t.Fatalf("handleBookmark() error = %v", err)
	}
	if bm.Message != "Bookmarked" || !bm.Progress.IsBookmarked {
		t.Errorf("handleBookmark() = %+v", bm)
	}

	done, err := server.handleComplete(ctx, ExerciseInput{ExerciseID: id})
	if err != nil {
		t.Fatalf("handleComplete() error = %v", err)
	}
	if !done.Progress.IsCompleted || done.Progress.ReadingProgress != 100 {
		t.Errorf("handleComplete() = %+v", done.Progress)
	}

	end, err := server.handleEnd(ctx, ExerciseInput{ExerciseID: id})
	if err != nil {
		t.Fatalf("handleEnd() error = %v", err)
	}
	if end.Message != "No open session for this exercise" {
		t.Errorf("handleEnd() after complete = %q", end.Message)
	}

	stats, err := server.handleStats(ctx, StatsInput{})
	if err != nil {
		t.Fatalf("handleStats() error = %v", err)
	}
	if stats.CompletedExercises != 1 || stats.BookmarkedExercises != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHandleStart_UnknownExercise(t *testing.T) {
	server := setupTestServer(t)

	if _, err := server.handleStart(context.Background(), ExerciseInput{ExerciseID: "nope"}); !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("handleStart() error = %v, want ErrExerciseNotFound", err)
	}
}

func TestRecommendationTools(t *testing.T) {
	server := setupTestServer(t)
	ctx := context.Background()

	recs, err := server.handleRecommend(ctx, RecommendInput{Limit: 2})
	if err != nil {
		t.Fatalf("handleRecommend() error = %v", err)
	}
	if len(recs.Recommendations) != 2 {
		t.Errorf("len = %d, want 2", len(recs.Recommendations))
	}

	related, err := server.handleRelated(ctx, RelatedInput{ExerciseID: "algorithms/sorting-basics"})
	if err != nil {
		t.Fatalf("handleRelated() error = %v", err)
	}
	for _, r := range related.Recommendations {
		if r.Exercise.Key() == "algorithms/sorting-basics" {
			t.Error("related should not include the exercise itself")
		}
	}

	if _, err := server.handleRelated(ctx, RelatedInput{}); err == nil {
		t.Error("handleRelated() without id should fail")
	}

	path, err := server.handlePath(ctx, PathInput{Category: "algorithms"})
	if err != nil {
		t.Fatalf("handlePath() error = %v", err)
	}
	for _, r := range path.Recommendations {
		if r.Exercise.Category != "algorithms" {
			t.Errorf("path includes %s from %s", r.Exercise.Key(), r.Exercise.Category)
		}
	}
}
