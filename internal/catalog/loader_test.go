package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/practicum/internal/domain"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/test/path")
	if loader == nil {
		t.Fatal("NewLoader returned nil")
	}
	if got := loader.BasePath(); got != "/test/path" {
		t.Errorf("BasePath() = %q, want %q", got, "/test/path")
	}
}

func TestLoader_LoadPack(t *testing.T) {
	loader := NewLoader("testdata")

	pack, err := loader.LoadPack("algorithms")
	if err != nil {
		t.Fatalf("LoadPack() error = %v", err)
	}

	if pack.ID != "algorithms" {
		t.Errorf("ID = %q, want %q", pack.ID, "algorithms")
	}
	if pack.Name != "Algorithms" {
		t.Errorf("Name = %q, want %q", pack.Name, "Algorithms")
	}
	want := []string{"algorithms/sorting-basics", "algorithms/binary-search", "algorithms/graph-traversal"}
	if len(pack.ExerciseIDs) != len(want) {
		t.Fatalf("ExerciseIDs = %v, want %v", pack.ExerciseIDs, want)
	}
	for i := range want {
		if pack.ExerciseIDs[i] != want[i] {
			t.Errorf("ExerciseIDs[%d] = %q, want %q", i, pack.ExerciseIDs[i], want[i])
		}
	}
}

func TestLoader_LoadPack_DefaultsFromDirectory(t *testing.T) {
	loader := NewLoader("testdata")

	pack, err := loader.LoadPack("web")
	if err != nil {
		t.Fatalf("LoadPack() error = %v", err)
	}
	if pack.ID != "web" {
		t.Errorf("ID = %q, want directory name", pack.ID)
	}
	if pack.Category != "web" {
		t.Errorf("Category = %q, want %q", pack.Category, "web")
	}
}

func TestLoader_LoadPack_Missing(t *testing.T) {
	loader := NewLoader(t.TempDir())
	if _, err := loader.LoadPack("nope"); err == nil {
		t.Error("LoadPack() should fail for a missing pack")
	}
}

func TestLoader_LoadPack_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	packDir := filepath.Join(tmpDir, "broken")
	if err := os.MkdirAll(packDir, 0755); err != nil {
		t.Fatalf("failed to create pack dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(packDir, "pack.yaml"), []byte("exercises: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write pack.yaml: %v", err)
	}

	if _, err := NewLoader(tmpDir).LoadPack("broken"); err == nil {
		t.Error("LoadPack() should fail on invalid YAML")
	}
}

func TestLoader_LoadExercise(t *testing.T) {
	loader := NewLoader("testdata")
	pack, err := loader.LoadPack("algorithms")
	if err != nil {
		t.Fatalf("LoadPack() error = %v", err)
	}

	meta, err := loader.LoadExercise(pack, "sorting-basics")
	if err != nil {
		t.Fatalf("LoadExercise() error = %v", err)
	}

	if meta.ID != "algorithms/sorting-basics" {
		t.Errorf("ID = %q", meta.ID)
	}
	if meta.Href != "/exercises/algorithms/sorting-basics" {
		t.Errorf("Href = %q", meta.Href)
	}
	if meta.Title != "Array Sorting Basics" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.Category != "algorithms" {
		t.Errorf("Category = %q, want inherited %q", meta.Category, "algorithms")
	}
	if meta.Difficulty != domain.DifficultyBeginner {
		t.Errorf("Difficulty = %q", meta.Difficulty)
	}
	if !meta.HasTag("sorting") {
		t.Errorf("Tags = %v, want sorting", meta.Tags)
	}
	if meta.EstimatedTime != "15 min" {
		t.Errorf("EstimatedTime = %q", meta.EstimatedTime)
	}
}

func TestLoader_LoadExercise_OwnCategoryAndTitleFallback(t *testing.T) {
	loader := NewLoader("testdata")
	pack, err := loader.LoadPack("web")
	if err != nil {
		t.Fatalf("LoadPack() error = %v", err)
	}

	meta, err := loader.LoadExercise(pack, "css-flexbox")
	if err != nil {
		t.Fatalf("LoadExercise() error = %v", err)
	}
	if meta.Category != "css" {
		t.Errorf("Category = %q, want %q", meta.Category, "css")
	}
	if meta.Title != "css-flexbox" {
		t.Errorf("Title = %q, want slug fallback", meta.Title)
	}
}

func TestLoader_LoadExercise_RejectsTraversal(t *testing.T) {
	loader := NewLoader("testdata")
	pack := &Pack{ID: "algorithms", Dir: "algorithms"}

	for _, slug := range []string{"", "../web/html-basics"} {
		if _, err := loader.LoadExercise(pack, slug); err == nil {
			t.Errorf("LoadExercise(%q) should fail", slug)
		}
	}
}

func TestLoader_LoadAllPacks(t *testing.T) {
	tmpDir := t.TempDir()
	// A directory without a manifest is skipped
	if err := os.MkdirAll(filepath.Join(tmpDir, "scratch"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	packs, err := NewLoader(tmpDir).LoadAllPacks()
	if err != nil {
		t.Fatalf("LoadAllPacks() error = %v", err)
	}
	if len(packs) != 0 {
		t.Errorf("len(packs) = %d, want 0", len(packs))
	}

	packs, err = NewLoader("testdata").LoadAllPacks()
	if err != nil {
		t.Fatalf("LoadAllPacks() error = %v", err)
	}
	if len(packs) != 2 {
		t.Errorf("len(packs) = %d, want 2", len(packs))
	}
}

func TestLoader_LoadAllPacks_MissingDir(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "missing")).LoadAllPacks(); err == nil {
		t.Error("LoadAllPacks() should fail for a missing base directory")
	}
}

func TestLoader_LoadPackExercises(t *testing.T) {
	loader := NewLoader("testdata")
	pack, err := loader.LoadPack("algorithms")
	if err != nil {
		t.Fatalf("LoadPack() error = %v", err)
	}

	exercises, err := loader.LoadPackExercises(pack)
	if err != nil {
		t.Fatalf("LoadPackExercises() error = %v", err)
	}
	if len(exercises) != 3 {
		t.Fatalf("len(exercises) = %d, want 3", len(exercises))
	}
	if exercises[2].Title != "Graph Traversal" {
		t.Errorf("exercises[2].Title = %q, want manifest order", exercises[2].Title)
	}
}
