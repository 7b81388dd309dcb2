package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Event Interface and Base Event
// -----------------------------------------------------------------------------

// Event represents a domain event
type Event interface {
	// EventID returns the unique identifier for this event
	EventID() uuid.UUID
	// EventType returns the type name of this event
	EventType() string
	// OccurredAt returns when this event occurred
	OccurredAt() time.Time
	// ExerciseKey returns the exercise the event is about
	ExerciseKey() string
}

// Event type names
const (
	EventExerciseStarted   = "exercise.started"
	EventExerciseCompleted = "exercise.completed"
	EventSessionClosed     = "session.closed"
	EventBookmarkToggled   = "bookmark.toggled"
)

// BaseEvent provides common event fields
type BaseEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	ExerciseID string    `json:"exercise_id"`
}

// NewBaseEvent creates a new BaseEvent
func NewBaseEvent(eventType, exerciseID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:         uuid.New(),
		Type:       eventType,
		Timestamp:  at,
		ExerciseID: exerciseID,
	}
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) ExerciseKey() string   { return e.ExerciseID }

// -----------------------------------------------------------------------------
// Event Handler and Dispatcher
// -----------------------------------------------------------------------------

// EventHandler processes domain events
type EventHandler func(event Event)

// EventDispatcher manages event subscriptions and publishing
type EventDispatcher struct {
	mu          sync.RWMutex
	handlers    map[string][]EventHandler
	allHandlers []EventHandler
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (d *EventDispatcher) Subscribe(eventType string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (d *EventDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allHandlers = append(d.allHandlers, handler)
}

// Publish dispatches an event to all registered handlers
func (d *EventDispatcher) Publish(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if handlers, ok := d.handlers[event.EventType()]; ok {
		for _, h := range handlers {
			h(event)
		}
	}

	for _, h := range d.allHandlers {
		h(event)
	}
}

// PublishAll dispatches multiple events
func (d *EventDispatcher) PublishAll(events []Event) {
	for _, event := range events {
		d.Publish(event)
	}
}

// -----------------------------------------------------------------------------
// Progress Events
// -----------------------------------------------------------------------------

// ExerciseStartedEvent is published when a learner opens an exercise
type ExerciseStartedEvent struct {
	BaseEvent
	Attempts  int  `json:"attempts"`
	FirstTime bool `json:"first_time"`
}

// NewExerciseStartedEvent creates a new exercise started event
func NewExerciseStartedEvent(exerciseID string, attempts int, firstTime bool, at time.Time) ExerciseStartedEvent {
	return ExerciseStartedEvent{
		BaseEvent: NewBaseEvent(EventExerciseStarted, exerciseID, at),
		Attempts:  attempts,
		FirstTime: firstTime,
	}
}

// ExerciseCompletedEvent is published when an exercise is marked complete
type ExerciseCompletedEvent struct {
	BaseEvent
	Category    string     `json:"category,omitempty"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
	TimeSpentMs int64      `json:"time_spent_ms"`
}

// NewExerciseCompletedEvent creates a new exercise completed event
func NewExerciseCompletedEvent(p ExerciseProgress, at time.Time) ExerciseCompletedEvent {
	return ExerciseCompletedEvent{
		BaseEvent:   NewBaseEvent(EventExerciseCompleted, p.ExerciseID, at),
		Category:    p.Category,
		Difficulty:  p.Difficulty,
		TimeSpentMs: p.TimeSpentMs,
	}
}

// SessionClosedEvent is published whenever an open session is flushed
type SessionClosedEvent struct {
	BaseEvent
	DurationMs int64 `json:"duration_ms"`
	Completed  bool  `json:"completed"`
	Forced     bool  `json:"forced"`
}

// NewSessionClosedEvent creates a new session closed event
func NewSessionClosedEvent(s ExerciseSession, forced bool, at time.Time) SessionClosedEvent {
	return SessionClosedEvent{
		BaseEvent:  NewBaseEvent(EventSessionClosed, s.ExerciseID, at),
		DurationMs: s.DurationMs,
		Completed:  s.Completed,
		Forced:     forced,
	}
}

// BookmarkToggledEvent is published when the bookmark flag flips
type BookmarkToggledEvent struct {
	BaseEvent
	Bookmarked bool `json:"bookmarked"`
}

// NewBookmarkToggledEvent creates a new bookmark toggled event
func NewBookmarkToggledEvent(exerciseID string, bookmarked bool, at time.Time) BookmarkToggledEvent {
	return BookmarkToggledEvent{
		BaseEvent:  NewBaseEvent(EventBookmarkToggled, exerciseID, at),
		Bookmarked: bookmarked,
	}
}
