package catalog

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/practicum/internal/domain"
	"gopkg.in/yaml.v3"
)

// PackFile represents the YAML structure for an exercise pack
type PackFile struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Exercises   []string `yaml:"exercises"`
}

// ExerciseFile represents the YAML structure for an exercise
type ExerciseFile struct {
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description"`
	Category      string   `yaml:"category"`
	Difficulty    string   `yaml:"difficulty"`
	Tags          []string `yaml:"tags"`
	EstimatedTime string   `yaml:"estimated_time"`
}

// Pack is a loaded pack with its ordered exercise ids
type Pack struct {
	ID          string
	Dir         string
	Name        string
	Description string
	Category    string
	ExerciseIDs []string
}

// Loader reads exercise packs from a directory tree:
//
//	<base>/<pack>/pack.yaml
//	<base>/<pack>/<slug>.yaml
type Loader struct {
	basePath string
}

// NewLoader creates a new exercise loader
func NewLoader(basePath string) *Loader {
	return &Loader{basePath: basePath}
}

// BasePath returns the directory the loader reads from
func (l *Loader) BasePath() string {
	return l.basePath
}

// LoadPack loads a pack manifest
func (l *Loader) LoadPack(packID string) (*Pack, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, packID, "pack.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read pack file: %w", err)
	}

	var packFile PackFile
	if err := yaml.Unmarshal(data, &packFile); err != nil {
		return nil, fmt.Errorf("parse pack file: %w", err)
	}

	id := packFile.ID
	if id == "" {
		id = packID
	}
	pack := &Pack{
		ID:          id,
		Dir:         packID,
		Name:        packFile.Name,
		Description: packFile.Description,
		Category:    packFile.Category,
		ExerciseIDs: make([]string, len(packFile.Exercises)),
	}
	if pack.Category == "" {
		pack.Category = id
	}
	for i, slug := range packFile.Exercises {
		pack.ExerciseIDs[i] = path.Join(packID, slug)
	}

	return pack, nil
}

// LoadExercise loads a single exercise. Exercises without their own
// category inherit the pack's.
func (l *Loader) LoadExercise(pack *Pack, slug string) (domain.ExerciseMeta, error) {
	if slug == "" || strings.Contains(slug, "..") {
		return domain.ExerciseMeta{}, fmt.Errorf("invalid exercise slug: %q", slug)
	}

	data, err := os.ReadFile(filepath.Join(l.basePath, pack.Dir, filepath.FromSlash(slug)+".yaml"))
	if err != nil {
		return domain.ExerciseMeta{}, fmt.Errorf("read exercise file: %w", err)
	}

	var exFile ExerciseFile
	if err := yaml.Unmarshal(data, &exFile); err != nil {
		return domain.ExerciseMeta{}, fmt.Errorf("parse exercise file: %w", err)
	}

	id := path.Join(pack.Dir, slug)
	meta := domain.ExerciseMeta{
		ID:            id,
		Href:          "/exercises/" + id,
		Title:         exFile.Title,
		Description:   strings.TrimSpace(exFile.Description),
		Category:      exFile.Category,
		Difficulty:    domain.Difficulty(exFile.Difficulty),
		Tags:          exFile.Tags,
		EstimatedTime: exFile.EstimatedTime,
	}
	if meta.Category == "" {
		meta.Category = pack.Category
	}
	if meta.Title == "" {
		meta.Title = path.Base(slug)
	}

	return meta, nil
}

// LoadAllPacks loads all exercise packs from the base directory
func (l *Loader) LoadAllPacks() ([]*Pack, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("read exercises directory: %w", err)
	}

	var packs []*Pack
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		packPath := filepath.Join(l.basePath, entry.Name(), "pack.yaml")
		if _, err := os.Stat(packPath); errors.Is(err, os.ErrNotExist) {
			continue
		}

		pack, err := l.LoadPack(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("load pack %s: %w", entry.Name(), err)
		}
		packs = append(packs, pack)
	}

	return packs, nil
}

// LoadPackExercises loads all exercises for a pack in manifest order
func (l *Loader) LoadPackExercises(pack *Pack) ([]domain.ExerciseMeta, error) {
	exercises := make([]domain.ExerciseMeta, 0, len(pack.ExerciseIDs))
	for _, exID := range pack.ExerciseIDs {
		slug := strings.TrimPrefix(exID, pack.Dir+"/")

		meta, err := l.LoadExercise(pack, slug)
		if err != nil {
			return nil, fmt.Errorf("load exercise %s: %w", exID, err)
		}
		exercises = append(exercises, meta)
	}

	return exercises, nil
}
