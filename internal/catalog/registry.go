package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/practicum/internal/domain"
)

// Registry keeps the YAML catalog in memory and serves it as a Catalog
type Registry struct {
	loader    *Loader
	mu        sync.RWMutex
	packs     map[string]*Pack
	exercises map[string]domain.ExerciseMeta
	order     []string
	loaded    bool
}

var _ Catalog = (*Registry)(nil)

// NewRegistry creates a new exercise registry
func NewRegistry(loader *Loader) *Registry {
	return &Registry{
		loader:    loader,
		packs:     make(map[string]*Pack),
		exercises: make(map[string]domain.ExerciseMeta),
	}
}

// Load loads all packs and exercises into memory
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	packs, err := r.loader.LoadAllPacks()
	if err != nil {
		return fmt.Errorf("load packs: %w", err)
	}
	sort.Slice(packs, func(i, j int) bool { return packs[i].Dir < packs[j].Dir })

	for _, pack := range packs {
		r.packs[pack.ID] = pack

		exercises, err := r.loader.LoadPackExercises(pack)
		if err != nil {
			return fmt.Errorf("load exercises for pack %s: %w", pack.ID, err)
		}

		for _, ex := range exercises {
			if _, dup := r.exercises[ex.ID]; !dup {
				r.order = append(r.order, ex.ID)
			}
			r.exercises[ex.ID] = ex
		}
	}

	r.loaded = true
	return nil
}

// ensureLoaded loads the catalog on first use. A failed load is retried
// on the next call.
func (r *Registry) ensureLoaded() error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	return r.Reload()
}

// Reload reloads all exercises
func (r *Registry) Reload() error {
	r.mu.Lock()
	r.packs = make(map[string]*Pack)
	r.exercises = make(map[string]domain.ExerciseMeta)
	r.order = nil
	r.loaded = false
	r.mu.Unlock()

	return r.Load()
}

// ListExercises returns exercises within scope in catalog order
func (r *Registry) ListExercises(ctx context.Context, scope string) ([]domain.ExerciseMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ExerciseMeta, 0, len(r.order))
	for _, id := range r.order {
		if ex := r.exercises[id]; InScope(ex, scope) {
			out = append(out, ex)
		}
	}
	return out, nil
}

// GetPack returns a pack by ID
func (r *Registry) GetPack(id string) (*Pack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pack, ok := r.packs[id]
	if !ok {
		return nil, fmt.Errorf("pack not found: %s", id)
	}
	return pack, nil
}

// GetExercise returns an exercise by ID
func (r *Registry) GetExercise(id string) (domain.ExerciseMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ex, ok := r.exercises[id]
	if !ok {
		return domain.ExerciseMeta{}, fmt.Errorf("%w: %s", domain.ErrExerciseNotFound, id)
	}
	return ex, nil
}

// ListPacks returns all packs sorted by ID
func (r *Registry) ListPacks() []*Pack {
	r.mu.RLock()
	defer r.mu.RUnlock()

	packs := make([]*Pack, 0, len(r.packs))
	for _, pack := range r.packs {
		packs = append(packs, pack)
	}
	sort.Slice(packs, func(i, j int) bool { return packs[i].ID < packs[j].ID })
	return packs
}

// ListPackExercises returns all exercises for a pack
func (r *Registry) ListPackExercises(packID string) ([]domain.ExerciseMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pack, ok := r.packs[packID]
	if !ok {
		return nil, fmt.Errorf("pack not found: %s", packID)
	}

	exercises := make([]domain.ExerciseMeta, 0, len(pack.ExerciseIDs))
	for _, exID := range pack.ExerciseIDs {
		if ex, ok := r.exercises[exID]; ok {
			exercises = append(exercises, ex)
		}
	}
	return exercises, nil
}

// GetNextExercise returns the exercise after currentID in its pack.
// ok is false when currentID is the last one.
func (r *Registry) GetNextExercise(currentID string) (next domain.ExerciseMeta, ok bool, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.packs {
		for i, exID := range p.ExerciseIDs {
			if exID != currentID {
				continue
			}
			if i+1 < len(p.ExerciseIDs) {
				if nextEx, found := r.exercises[p.ExerciseIDs[i+1]]; found {
					return nextEx, true, nil
				}
			}
			return domain.ExerciseMeta{}, false, nil
		}
	}

	return domain.ExerciseMeta{}, false, fmt.Errorf("%w: %s", domain.ErrExerciseNotFound, currentID)
}

// Stats returns statistics about loaded exercises
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{
		PackCount:     len(r.packs),
		ExerciseCount: len(r.exercises),
		ByDifficulty:  make(map[string]int),
	}

	for _, ex := range r.exercises {
		stats.ByDifficulty[string(ex.Difficulty)]++
	}

	return stats
}

// RegistryStats holds statistics about the registry
type RegistryStats struct {
	PackCount     int
	ExerciseCount int
	ByDifficulty  map[string]int
}
