package bookmark

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/metrics"
	"github.com/felixgeelhaar/practicum/internal/storage"
)

// Export is the dump of every collection and tag
type Export struct {
	Collections map[string]domain.BookmarkCollection `json:"collections"`
	Tags        map[string]domain.BookmarkTag        `json:"tags"`
	ExportDate  time.Time                            `json:"exportDate"`
}

// ExportBookmarks renders every collection and tag as JSON
func (o *Organizer) ExportBookmarks() ([]byte, error) {
	o.mu.RLock()
	dump := Export{
		Collections: make(map[string]domain.BookmarkCollection, len(o.collections)),
		Tags:        make(map[string]domain.BookmarkTag, len(o.tags)),
		ExportDate:  o.now(),
	}
	for id, c := range o.collections {
		dump.Collections[id] = c.Clone()
	}
	for id, t := range o.tags {
		dump.Tags[id] = t.Clone()
	}
	o.mu.RUnlock()

	data, err := json.Marshal(dump)
	if err != nil {
		return nil, fmt.Errorf("encode bookmarks: %w", err)
	}
	return data, nil
}

// ImportBookmarks replaces collections and/or tags with those in data.
// A section missing from the payload is left as it is.
func (o *Organizer) ImportBookmarks(ctx context.Context, data []byte) error {
	var dump struct {
		Collections map[string]*domain.BookmarkCollection `json:"collections"`
		Tags        map[string]*domain.BookmarkTag        `json:"tags"`
	}
	if err := json.Unmarshal(data, &dump); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidExport, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if dump.Collections != nil {
		o.collections = make(map[string]*domain.BookmarkCollection, len(dump.Collections))
		for id, c := range dump.Collections {
			if c == nil {
				continue
			}
			if c.ID == "" {
				c.ID = id
			}
			o.collections[id] = c
		}
		o.saveCollectionsLocked(ctx)
	}
	if dump.Tags != nil {
		o.tags = make(map[string]*domain.BookmarkTag, len(dump.Tags))
		for id, t := range dump.Tags {
			if t == nil {
				continue
			}
			if t.ID == "" {
				t.ID = id
			}
			o.tags[id] = t
		}
		o.saveTagsLocked(ctx)
	}
	return nil
}

// ClearAll drops every collection and tag. Bookmark flags on progress
// records are untouched.
func (o *Organizer) ClearAll(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.collections = make(map[string]*domain.BookmarkCollection)
	o.tags = make(map[string]*domain.BookmarkTag)

	for _, key := range []string{storage.KeyCollections, storage.KeyTags} {
		if err := o.kv.Remove(ctx, key); err != nil {
			o.logger.Error("failed to clear bookmark data", "key", key, "error", err)
			metrics.RecordStorageFailure("bookmark", "remove")
		}
	}
}
