package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/metrics"
	"github.com/felixgeelhaar/practicum/internal/storage"
)

// Export is the full dump of a learner's progress
type Export struct {
	Progress   map[string]domain.ExerciseProgress `json:"progress"`
	Sessions   map[string]domain.ExerciseSession  `json:"sessions"`
	ExportDate time.Time                          `json:"exportDate"`
}

// ExportData snapshots every record and retained session
func (s *Store) ExportData() Export {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Export{
		Progress:   make(map[string]domain.ExerciseProgress, len(s.progress)),
		Sessions:   make(map[string]domain.ExerciseSession, len(s.sessions)),
		ExportDate: s.now(),
	}
	for id, p := range s.progress {
		out.Progress[id] = p.Clone()
	}
	for k, v := range s.sessions {
		out.Sessions[k] = v
	}
	return out
}

// ExportJSON renders ExportData as indented JSON
func (s *Store) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s.ExportData(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// ImportData replaces every record and session with the dump and
// persists it. Any open session is discarded.
func (s *Store) ImportData(ctx context.Context, dump Export) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress = make(map[string]*domain.ExerciseProgress, len(dump.Progress))
	for id, p := range dump.Progress {
		p := p.Clone()
		if p.ExerciseID == "" {
			p.ExerciseID = id
		}
		s.progress[id] = &p
	}
	s.sessions = make(map[string]domain.ExerciseSession, len(dump.Sessions))
	for k, v := range dump.Sessions {
		s.sessions[k] = v
	}
	s.state = Idle{}
	s.persistLocked(ctx)
}

// ImportJSON parses an ExportJSON payload and imports it. Payloads
// without a progress map are rejected and leave the store untouched.
func (s *Store) ImportJSON(ctx context.Context, data []byte) error {
	var dump Export
	if err := json.Unmarshal(data, &dump); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidExport, err)
	}
	if dump.Progress == nil {
		return fmt.Errorf("%w: missing progress", domain.ErrInvalidExport)
	}
	for id, p := range dump.Progress {
		if p.ReadingProgress < 0 || p.ReadingProgress > 100 || p.TimeSpentMs < 0 || p.Attempts < 0 {
			return fmt.Errorf("%w: %s", domain.ErrInvalidProgress, id)
		}
	}
	s.ImportData(ctx, dump)
	return nil
}

// ClearAll drops every record and session, in memory and in storage
func (s *Store) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress = make(map[string]*domain.ExerciseProgress)
	s.sessions = make(map[string]domain.ExerciseSession)
	s.state = Idle{}
	s.dirty = false

	for _, key := range []string{storage.KeyProgress, storage.KeySessions} {
		if err := s.kv.Remove(ctx, key); err != nil {
			s.logger.Error("failed to clear progress data", "key", key, "error", err)
			metrics.RecordStorageFailure("progress", "remove")
		}
	}
}
