// Package bookmark organizes bookmarked exercises into user-authored
// collections and tags. The bookmark flag itself lives on the progress
// record; collections and tags only reference exercise ids.
package bookmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/metrics"
	"github.com/felixgeelhaar/practicum/internal/storage"
)

// ProgressSource is the slice of the progress store the organizer reads
type ProgressSource interface {
	GetProgress(id string) (domain.ExerciseProgress, bool)
	Bookmarked() []domain.ExerciseProgress
}

// Option configures an Organizer
type Option func(*Organizer)

// WithClock injects the time source
func WithClock(now func() time.Time) Option {
	return func(o *Organizer) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger for persistence failures
func WithLogger(logger *slog.Logger) Option {
	return func(o *Organizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Organizer owns bookmark collections and tags for one learner
type Organizer struct {
	mu          sync.RWMutex
	kv          storage.KV
	progress    ProgressSource
	collections map[string]*domain.BookmarkCollection
	tags        map[string]*domain.BookmarkTag

	now    func() time.Time
	logger *slog.Logger
}

// NewOrganizer creates an organizer and loads persisted collections and
// tags from kv. A nil kv keeps everything in memory only.
func NewOrganizer(ctx context.Context, kv storage.KV, progress ProgressSource, opts ...Option) *Organizer {
	o := &Organizer{
		kv:          storage.OrNop(kv),
		progress:    progress,
		collections: make(map[string]*domain.BookmarkCollection),
		tags:        make(map[string]*domain.BookmarkTag),
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.load(ctx, storage.KeyCollections, &o.collections)
	o.load(ctx, storage.KeyTags, &o.tags)
	if o.collections == nil {
		o.collections = make(map[string]*domain.BookmarkCollection)
	}
	if o.tags == nil {
		o.tags = make(map[string]*domain.BookmarkTag)
	}
	for id, c := range o.collections {
		if c == nil {
			delete(o.collections, id)
		}
	}
	for id, t := range o.tags {
		if t == nil {
			delete(o.tags, id)
		}
	}
	return o
}

func (o *Organizer) load(ctx context.Context, key string, dst any) {
	raw, err := o.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			o.logger.Error("failed to load bookmark data", "key", key, "error", err)
			metrics.RecordStorageFailure("bookmark", "load")
		}
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		o.logger.Warn("discarding malformed bookmark data", "key", key, "error", err)
		metrics.RecordStorageFailure("bookmark", "parse")
	}
}

// -----------------------------------------------------------------------------
// Collections
// -----------------------------------------------------------------------------

// NewCollection describes a collection to create. Empty Color and Icon
// fall back to the defaults.
type NewCollection struct {
	Name        string
	Description string
	Color       string
	Icon        string
}

// CreateCollection adds an empty collection
func (o *Organizer) CreateCollection(ctx context.Context, in NewCollection) (domain.BookmarkCollection, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.BookmarkCollection{}, domain.ErrEmptyName
	}
	c := &domain.BookmarkCollection{
		ID:          uuid.NewString(),
		Name:        name,
		Description: in.Description,
		ExerciseIDs: []string{},
		Color:       orDefault(in.Color, domain.DefaultCollectionColor),
		Icon:        orDefault(in.Icon, domain.DefaultCollectionIcon),
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.collectionNameTakenLocked(name, "") {
		return domain.BookmarkCollection{}, fmt.Errorf("%w: %s", domain.ErrDuplicateName, name)
	}
	now := o.now()
	c.CreatedAt, c.UpdatedAt = now, now
	o.collections[c.ID] = c
	o.saveCollectionsLocked(ctx)
	return c.Clone(), nil
}

// UpdateCollection applies the non-nil fields of upd and bumps UpdatedAt
func (o *Organizer) UpdateCollection(ctx context.Context, id string, upd domain.CollectionUpdate) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.collections[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, id)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return domain.ErrEmptyName
		}
		if o.collectionNameTakenLocked(name, id) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateName, name)
		}
		c.Name = name
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.Color != nil {
		c.Color = *upd.Color
	}
	if upd.Icon != nil {
		c.Icon = *upd.Icon
	}
	c.UpdatedAt = o.now()
	o.saveCollectionsLocked(ctx)
	return nil
}

// DeleteCollection removes a collection. Progress records are untouched.
func (o *Organizer) DeleteCollection(ctx context.Context, id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.collections[id]; !ok {
		return false
	}
	delete(o.collections, id)
	o.saveCollectionsLocked(ctx)
	return true
}

// AddToCollection appends exerciseID unless already present. It reports
// true whenever the collection exists, including for an existing member.
func (o *Organizer) AddToCollection(ctx context.Context, collectionID, exerciseID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.collections[collectionID]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collectionID)
	}
	if c.Contains(exerciseID) {
		return true, nil
	}
	c.ExerciseIDs = append(c.ExerciseIDs, exerciseID)
	c.UpdatedAt = o.now()
	o.saveCollectionsLocked(ctx)
	return true, nil
}

// collectionNameTakenLocked reports whether name, ignoring case, belongs to a
// collection other than exceptID or is the reserved uncategorized group.
func (o *Organizer) collectionNameTakenLocked(name, exceptID string) bool {
	if strings.EqualFold(name, UncategorizedGroup) {
		return true
	}
	for id, c := range o.collections {
		if id != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// RemoveFromCollection drops exerciseID and reports whether it was a member
func (o *Organizer) RemoveFromCollection(ctx context.Context, collectionID, exerciseID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.collections[collectionID]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collectionID)
	}
	ids, removed := without(c.ExerciseIDs, exerciseID)
	if !removed {
		return false, nil
	}
	c.ExerciseIDs = ids
	c.UpdatedAt = o.now()
	o.saveCollectionsLocked(ctx)
	return true, nil
}

// GetCollection returns a copy of one collection
func (o *Organizer) GetCollection(id string) (domain.BookmarkCollection, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	c, ok := o.collections[id]
	if !ok {
		return domain.BookmarkCollection{}, false
	}
	return c.Clone(), true
}

// AllCollections returns every collection, most recently updated first
func (o *Organizer) AllCollections() []domain.BookmarkCollection {
	o.mu.RLock()
	out := make([]domain.BookmarkCollection, 0, len(o.collections))
	for _, c := range o.collections {
		out = append(out, c.Clone())
	}
	o.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CollectionExercises resolves a collection's members to progress
// records, skipping ids without one
func (o *Organizer) CollectionExercises(id string) []domain.ExerciseProgress {
	o.mu.RLock()
	c, ok := o.collections[id]
	var ids []string
	if ok {
		ids = append(ids, c.ExerciseIDs...)
	}
	o.mu.RUnlock()

	return o.resolve(ids)
}

// -----------------------------------------------------------------------------
// Tags
// -----------------------------------------------------------------------------

// CreateTag adds an unused tag. An empty color falls back to the default.
func (o *Organizer) CreateTag(ctx context.Context, name, color string) (domain.BookmarkTag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.BookmarkTag{}, domain.ErrEmptyName
	}
	t := &domain.BookmarkTag{
		ID:          uuid.NewString(),
		Name:        name,
		Color:       orDefault(color, domain.DefaultTagColor),
		ExerciseIDs: []string{},
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.tags[t.ID] = t
	o.saveTagsLocked(ctx)
	return t.Clone(), nil
}

// UpdateTag applies the non-nil fields of upd
func (o *Organizer) UpdateTag(ctx context.Context, id string, upd domain.TagUpdate) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	t, ok := o.tags[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTagNotFound, id)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return domain.ErrEmptyName
		}
		t.Name = name
	}
	if upd.Color != nil {
		t.Color = *upd.Color
	}
	o.saveTagsLocked(ctx)
	return nil
}

// DeleteTag removes a tag. Progress records are untouched.
func (o *Organizer) DeleteTag(ctx context.Context, id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.tags[id]; !ok {
		return false
	}
	delete(o.tags, id)
	o.saveTagsLocked(ctx)
	return true
}

// AddTagToExercise applies a tag. Re-applying reports true without changes.
func (o *Organizer) AddTagToExercise(ctx context.Context, tagID, exerciseID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	t, ok := o.tags[tagID]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrTagNotFound, tagID)
	}
	if t.Contains(exerciseID) {
		return true, nil
	}
	t.ExerciseIDs = append(t.ExerciseIDs, exerciseID)
	o.saveTagsLocked(ctx)
	return true, nil
}

// RemoveTagFromExercise unapplies a tag and reports whether it was applied
func (o *Organizer) RemoveTagFromExercise(ctx context.Context, tagID, exerciseID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	t, ok := o.tags[tagID]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrTagNotFound, tagID)
	}
	ids, removed := without(t.ExerciseIDs, exerciseID)
	if !removed {
		return false, nil
	}
	t.ExerciseIDs = ids
	o.saveTagsLocked(ctx)
	return true, nil
}

// GetTag returns a copy of one tag
func (o *Organizer) GetTag(id string) (domain.BookmarkTag, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	t, ok := o.tags[id]
	if !ok {
		return domain.BookmarkTag{}, false
	}
	return t.Clone(), true
}

// AllTags returns every tag sorted by name
func (o *Organizer) AllTags() []domain.BookmarkTag {
	o.mu.RLock()
	out := make([]domain.BookmarkTag, 0, len(o.tags))
	for _, t := range o.tags {
		out = append(out, t.Clone())
	}
	o.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ExerciseTags returns the tags applied to an exercise, sorted by name
func (o *Organizer) ExerciseTags(exerciseID string) []domain.BookmarkTag {
	var out []domain.BookmarkTag
	for _, t := range o.AllTags() {
		if t.Contains(exerciseID) {
			out = append(out, t)
		}
	}
	return out
}

// TagExercises resolves a tag's exercises to progress records
func (o *Organizer) TagExercises(id string) []domain.ExerciseProgress {
	o.mu.RLock()
	t, ok := o.tags[id]
	var ids []string
	if ok {
		ids = append(ids, t.ExerciseIDs...)
	}
	o.mu.RUnlock()

	return o.resolve(ids)
}

// -----------------------------------------------------------------------------
// Persistence helpers
// -----------------------------------------------------------------------------

func (o *Organizer) resolve(ids []string) []domain.ExerciseProgress {
	out := make([]domain.ExerciseProgress, 0, len(ids))
	for _, id := range ids {
		if p, ok := o.progress.GetProgress(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (o *Organizer) saveCollectionsLocked(ctx context.Context) {
	o.save(ctx, storage.KeyCollections, o.collections)
}

func (o *Organizer) saveTagsLocked(ctx context.Context) {
	o.save(ctx, storage.KeyTags, o.tags)
}

func (o *Organizer) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		o.logger.Error("failed to encode bookmark data", "key", key, "error", err)
		metrics.RecordStorageFailure("bookmark", "encode")
		return
	}
	if err := o.kv.Set(ctx, key, string(data)); err != nil {
		o.logger.Error("failed to save bookmark data", "key", key, "error", err)
		metrics.RecordStorageFailure("bookmark", "save")
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func without(ids []string, id string) ([]string, bool) {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...), true
		}
	}
	return ids, false
}
