package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/felixgeelhaar/practicum/internal/config"
	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/metrics"
	"github.com/felixgeelhaar/practicum/internal/search"
	"github.com/felixgeelhaar/practicum/internal/storage"
)

var testNow = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) *config.LocalConfig {
	t.Helper()
	cfg := config.DefaultLocalConfig()
	cfg.Storage.Backend = config.BackendMemory
	cfg.Catalog.Path = filepath.Join("..", "catalog", "testdata")
	return cfg
}

func newTestApp(t *testing.T, kv storage.KV) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(t),
		WithStorage(kv),
		WithClock(func() time.Time { return testNow }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestNew_WiresComponents(t *testing.T) {
	a := newTestApp(t, storage.NewMemory())
	ctx := context.Background()

	meta, err := a.Exercise(ctx, "algorithms/sorting-basics")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	if meta.Title != "Array Sorting Basics" {
		t.Errorf("Title = %q", meta.Title)
	}

	if _, err := a.Exercise(ctx, "missing"); !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("Exercise(missing) error = %v, want ErrExerciseNotFound", err)
	}

	results := a.Search.Search(ctx, search.Options{Query: "sorting"})
	if len(results) == 0 || results[0].Exercise.Title != "Array Sorting Basics" {
		t.Errorf("Search() = %+v", results)
	}

	if recs := a.Recommend.GetRecommendations(ctx, a.DefaultSettings()); len(recs) == 0 {
		t.Error("GetRecommendations() returned nothing for a fresh learner")
	}
}

func TestNew_ProgressFlowsThroughEngines(t *testing.T) {
	kv := storage.NewMemory()
	a := newTestApp(t, kv)
	ctx := context.Background()
	before := testutil.ToFloat64(metrics.ProgressEvents.WithLabelValues(domain.EventExerciseCompleted))

	meta, err := a.Exercise(ctx, "algorithms/sorting-basics")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	a.Progress.StartExercise(ctx, meta.Key(), meta)
	a.Progress.CompleteExercise(ctx, meta.Key())

	if got := testutil.ToFloat64(metrics.ProgressEvents.WithLabelValues(domain.EventExerciseCompleted)) - before; got != 1 {
		t.Errorf("completed events = %v, want 1", got)
	}

	path := a.Recommend.GetLearningPath(ctx, "algorithms", "")
	for _, rec := range path {
		if rec.Exercise.Key() == meta.Key() {
			t.Error("learning path should not include a completed exercise")
		}
	}

	if _, err := kv.Get(ctx, storage.KeyProgress); err != nil {
		t.Errorf("progress not persisted: %v", err)
	}
}

func TestRun_FlushesWhenCancelled(t *testing.T) {
	kv := storage.NewMemory()
	a := newTestApp(t, kv)
	ctx, cancel := context.WithCancel(context.Background())

	meta, err := a.Exercise(ctx, "algorithms/sorting-basics")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	a.Progress.StartExercise(ctx, meta.Key(), meta)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if _, err := kv.Get(context.Background(), storage.KeyProgress); err != nil {
		t.Errorf("progress not flushed: %v", err)
	}
}

func TestDefaultSettings(t *testing.T) {
	a := newTestApp(t, nil)
	a.Config.Recommend.MaxRecommendations = 3
	a.Config.Recommend.IncludeCompleted = true

	s := a.DefaultSettings()
	if s.MaxRecommendations != 3 || !s.IncludeCompleted {
		t.Errorf("DefaultSettings() = %+v", s)
	}
	if !s.ConsiderTags || !s.ConsiderDifficulty {
		t.Error("every rule should stay enabled")
	}
}

func TestReloadCatalog(t *testing.T) {
	a := newTestApp(t, nil)

	if err := a.ReloadCatalog(); err != nil {
		t.Fatalf("ReloadCatalog() error = %v", err)
	}
	if got := a.Registry.Stats().ExerciseCount; got != 5 {
		t.Errorf("ExerciseCount = %d, want 5", got)
	}
}

func TestNew_MissingCatalogDegrades(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing")
	cfg.Catalog.RetryAttempts = 1

	a, err := New(context.Background(), cfg, WithStorage(storage.NewMemory()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close(context.Background())

	if recs := a.Recommend.GetRecommendations(context.Background(), a.DefaultSettings()); len(recs) != 0 {
		t.Errorf("GetRecommendations() = %v, want empty", recs)
	}
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.StorageConfig
	}{
		{"memory", config.StorageConfig{Backend: config.BackendMemory}},
		{"local", config.StorageConfig{Backend: config.BackendLocal, Path: filepath.Join(dir, "local")}},
		{"sqlite", config.StorageConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "practicum.db")}},
		{"badger", config.StorageConfig{Backend: config.BackendBadger, Path: filepath.Join(dir, "badger")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, closeFn, err := OpenStorage(ctx, tt.cfg, "learner")
			if err != nil {
				t.Fatalf("OpenStorage() error = %v", err)
			}
			defer closeFn()

			if err := kv.Set(ctx, "k", "v"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := kv.Get(ctx, "k")
			if err != nil || got != "v" {
				t.Errorf("Get() = %q, %v", got, err)
			}
		})
	}
}

func TestOpenStorage_NoneAndUnknown(t *testing.T) {
	ctx := context.Background()

	kv, closeFn, err := OpenStorage(ctx, config.StorageConfig{Backend: config.BackendNone}, "")
	if err != nil {
		t.Fatalf("OpenStorage(none) error = %v", err)
	}
	defer closeFn()
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Nop.Get() error = %v, want ErrNotFound", err)
	}

	if _, _, err := OpenStorage(ctx, config.StorageConfig{Backend: "mongo"}, ""); !errors.Is(err, config.ErrUnknownBackend) {
		t.Errorf("OpenStorage(mongo) error = %v, want ErrUnknownBackend", err)
	}
}
