// Package progress tracks per-exercise learner progress and engagement
// sessions on top of a key-value backend.
//
// Persistence failures never reach callers: they are logged and counted,
// and the in-memory state stays authoritative for the running process.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/metrics"
	"github.com/felixgeelhaar/practicum/internal/storage"
)

// DefaultFlushInterval bounds how long an UpdateProgress call stays unsaved
const DefaultFlushInterval = 30 * time.Second

// DefaultRecentLimit is used by Recent when n <= 0
const DefaultRecentLimit = 10

// Option configures a Store
type Option func(*Store)

// WithClock injects the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger for persistence failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDispatcher publishes progress events to d
func WithDispatcher(d *domain.EventDispatcher) Option {
	return func(s *Store) {
		s.dispatcher = d
	}
}

// WithFlushInterval sets the period used by Run
func WithFlushInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// Store owns progress and session records for one learner
type Store struct {
	mu       sync.Mutex
	kv       storage.KV
	progress map[string]*domain.ExerciseProgress
	sessions map[string]domain.ExerciseSession
	state    SessionState
	dirty    bool

	now           func() time.Time
	logger        *slog.Logger
	dispatcher    *domain.EventDispatcher
	flushInterval time.Duration
}

// NewStore creates a store and loads any persisted records from kv.
// A nil kv keeps everything in memory only.
func NewStore(ctx context.Context, kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:            storage.OrNop(kv),
		progress:      make(map[string]*domain.ExerciseProgress),
		sessions:      make(map[string]domain.ExerciseSession),
		state:         Idle{},
		now:           time.Now,
		logger:        slog.Default(),
		flushInterval: DefaultFlushInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.loadMap(ctx, storage.KeyProgress, &s.progress)
	s.loadMap(ctx, storage.KeySessions, &s.sessions)
	if s.progress == nil {
		s.progress = make(map[string]*domain.ExerciseProgress)
	}
	if s.sessions == nil {
		s.sessions = make(map[string]domain.ExerciseSession)
	}
	for id, p := range s.progress {
		if p == nil {
			delete(s.progress, id)
		}
	}
	return s
}

// loadMap decodes one persisted map. Missing keys and malformed JSON
// leave dst empty.
func (s *Store) loadMap(ctx context.Context, key string, dst any) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("failed to load progress data", "key", key, "error", err)
			metrics.RecordStorageFailure("progress", "load")
		}
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("discarding malformed progress data", "key", key, "error", err)
		metrics.RecordStorageFailure("progress", "parse")
	}
}

// StartExercise records engagement with an exercise and opens a session
// for it. Any session already open is closed first. A first engagement
// creates the record with zero attempts; later calls bump attempts.
func (s *Store) StartExercise(ctx context.Context, id string, meta domain.ExerciseMeta) {
	s.mu.Lock()
	now := s.now()
	var events []domain.Event

	if open, ok := s.state.(Open); ok {
		closed := s.closeSessionLocked(now, false)
		events = append(events, domain.NewSessionClosedEvent(closed, open.ExerciseID != id, now))
	}

	p, exists := s.progress[id]
	if !exists {
		p = domain.NewExerciseProgress(id, meta, now)
		s.progress[id] = p
	} else {
		p.LastAccessedAt = now
		p.Attempts++
	}

	s.state = Open{
		ExerciseID: id,
		Session: domain.ExerciseSession{
			ExerciseID:     id,
			SessionStart:   now,
			ProgressBefore: p.ReadingProgress,
			ProgressAfter:  p.ReadingProgress,
		},
	}
	events = append(events, domain.NewExerciseStartedEvent(id, p.Attempts, !exists, now))

	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(events...)
}

// UpdateProgress raises the reading progress of an existing record.
// Progress never regresses. The change is saved by the next flush.
func (s *Store) UpdateProgress(id string, pct float64) {
	if math.IsNaN(pct) {
		return
	}
	pct = math.Max(0, math.Min(100, pct))

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[id]
	if !ok {
		return
	}
	now := s.now()
	p.ReadingProgress = math.Max(p.ReadingProgress, pct)
	p.LastAccessedAt = now

	if open, ok := s.state.(Open); ok && open.ExerciseID == id {
		open.Session.ProgressAfter = p.ReadingProgress
		open.Session.DurationMs = elapsedMs(open.Session.SessionStart, now)
		s.state = open
	}
	s.dirty = true
}

// CompleteExercise marks an existing record complete and closes its open
// session. Missing records are ignored.
func (s *Store) CompleteExercise(ctx context.Context, id string) {
	s.mu.Lock()

	p, ok := s.progress[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := s.now()
	completedAt := now
	p.CompletedAt = &completedAt
	p.LastAccessedAt = now
	p.ReadingProgress = 100
	p.IsCompleted = true

	var events []domain.Event
	if OpenExerciseID(s.state) == id {
		closed := s.closeSessionLocked(now, true)
		events = append(events, domain.NewSessionClosedEvent(closed, false, now))
	}
	events = append(events, domain.NewExerciseCompletedEvent(p.Clone(), now))

	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(events...)
}

// EndSession closes the open session for id without completing it and
// adds its elapsed time to the record. It reports whether a session was
// closed.
func (s *Store) EndSession(ctx context.Context, id string) bool {
	s.mu.Lock()

	if OpenExerciseID(s.state) != id {
		s.mu.Unlock()
		return false
	}
	now := s.now()
	closed := s.closeSessionLocked(now, false)
	if p, ok := s.progress[id]; ok {
		p.LastAccessedAt = now
	}

	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(domain.NewSessionClosedEvent(closed, false, now))
	return true
}

// closeSessionLocked ends the open session at now, flushes its duration
// into the owning record and retains it for statistics.
func (s *Store) closeSessionLocked(now time.Time, completed bool) domain.ExerciseSession {
	open, ok := s.state.(Open)
	if !ok {
		return domain.ExerciseSession{}
	}
	sess := open.Session
	end := now
	sess.SessionEnd = &end
	sess.DurationMs = elapsedMs(sess.SessionStart, now)
	if completed {
		sess.Completed = true
		sess.ProgressAfter = 100
	}

	if p, ok := s.progress[open.ExerciseID]; ok {
		p.TimeSpentMs += sess.DurationMs
		if !completed {
			sess.ProgressAfter = p.ReadingProgress
		}
	}

	s.sessions[s.sessionKeyLocked(open.ExerciseID, now)] = sess
	s.state = Idle{}
	return sess
}

// sessionKeyLocked returns "<id>-<unixMillis>", suffixed on collision
func (s *Store) sessionKeyLocked(id string, at time.Time) string {
	base := fmt.Sprintf("%s-%d", id, at.UnixMilli())
	key := base
	for n := 1; ; n++ {
		if _, taken := s.sessions[key]; !taken {
			return key
		}
		key = fmt.Sprintf("%s-%d", base, n)
	}
}

func elapsedMs(start, end time.Time) int64 {
	if d := end.Sub(start).Milliseconds(); d > 0 {
		return d
	}
	return 0
}

// ToggleBookmark flips the bookmark flag, creating the record on first
// use. It returns the new state.
func (s *Store) ToggleBookmark(ctx context.Context, id string, meta domain.ExerciseMeta) bool {
	s.mu.Lock()

	now := s.now()
	p, ok := s.progress[id]
	if !ok {
		p = domain.NewExerciseProgress(id, meta, now)
		s.progress[id] = p
	}
	p.IsBookmarked = !p.IsBookmarked
	p.LastAccessedAt = now
	bookmarked := p.IsBookmarked

	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(domain.NewBookmarkToggledEvent(id, bookmarked, now))
	return bookmarked
}

// AddNote overwrites the note on an existing record. It reports whether
// the record exists.
func (s *Store) AddNote(ctx context.Context, id, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[id]
	if !ok {
		return false
	}
	p.Notes = text
	p.LastAccessedAt = s.now()
	s.persistLocked(ctx)
	return true
}

// RemoveProgress deletes a single record. An open session for it is
// discarded.
func (s *Store) RemoveProgress(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.progress[id]; !ok {
		return false
	}
	delete(s.progress, id)
	if OpenExerciseID(s.state) == id {
		s.state = Idle{}
	}
	s.persistLocked(ctx)
	return true
}

// GetProgress returns a copy of the record for id
func (s *Store) GetProgress(id string) (domain.ExerciseProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[id]
	if !ok {
		return domain.ExerciseProgress{}, false
	}
	return p.Clone(), true
}

// All returns copies of every record ordered by exercise id
func (s *Store) All() []domain.ExerciseProgress {
	return s.filter(func(*domain.ExerciseProgress) bool { return true })
}

// Bookmarked returns bookmarked records
func (s *Store) Bookmarked() []domain.ExerciseProgress {
	return s.filter(func(p *domain.ExerciseProgress) bool { return p.IsBookmarked })
}

// Completed returns completed records
func (s *Store) Completed() []domain.ExerciseProgress {
	return s.filter(func(p *domain.ExerciseProgress) bool { return p.IsCompleted })
}

// InProgress returns records with 0 < progress < 100 that are not complete
func (s *Store) InProgress() []domain.ExerciseProgress {
	return s.filter(func(p *domain.ExerciseProgress) bool { return p.IsInProgress() })
}

// Recent returns the n most recently accessed records
func (s *Store) Recent(n int) []domain.ExerciseProgress {
	if n <= 0 {
		n = DefaultRecentLimit
	}
	all := s.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].LastAccessedAt.After(all[j].LastAccessedAt)
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func (s *Store) filter(keep func(*domain.ExerciseProgress) bool) []domain.ExerciseProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ExerciseProgress, 0, len(s.progress))
	for _, p := range s.progress {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExerciseID < out[j].ExerciseID })
	return out
}

// CurrentSession returns the tagged session state
func (s *Store) CurrentSession() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sessions returns copies of the retained closed sessions keyed by
// "<exerciseId>-<closeUnixMillis>"
func (s *Store) Sessions() map[string]domain.ExerciseSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.ExerciseSession, len(s.sessions))
	for k, v := range s.sessions {
		out[k] = v
	}
	return out
}

// Statistics computes aggregates over every record and retained session
func (s *Store) Statistics() domain.Statistics {
	s.mu.Lock()
	records := make([]domain.ExerciseProgress, 0, len(s.progress))
	for _, p := range s.progress {
		records = append(records, p.Clone())
	}
	sessions := make([]domain.ExerciseSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	now := s.now()
	s.mu.Unlock()

	return ComputeStatistics(records, sessions, now)
}

// Flush persists pending changes
func (s *Store) Flush(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.persistLocked(ctx)
	}
}

// Run flushes pending changes every flush interval until ctx is done,
// then flushes once more.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// Close ends any open session and flushes
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	if id := OpenExerciseID(s.state); id != "" {
		now := s.now()
		closed := s.closeSessionLocked(now, false)
		s.persistLocked(ctx)
		s.mu.Unlock()
		s.publish(domain.NewSessionClosedEvent(closed, true, now))
		return
	}
	if s.dirty {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()
}

// persistLocked writes both maps. Failures are logged and the store
// stays dirty so the next flush retries.
func (s *Store) persistLocked(ctx context.Context) {
	ok := s.saveLocked(ctx, storage.KeyProgress, s.progress)
	ok = s.saveLocked(ctx, storage.KeySessions, s.sessions) && ok
	s.dirty = !ok
}

func (s *Store) saveLocked(ctx context.Context, key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode progress data", "key", key, "error", err)
		metrics.RecordStorageFailure("progress", "encode")
		return false
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		s.logger.Error("failed to save progress data", "key", key, "error", err)
		metrics.RecordStorageFailure("progress", "save")
		return false
	}
	return true
}

func (s *Store) publish(events ...domain.Event) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.PublishAll(events)
}
