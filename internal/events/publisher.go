// Package events forwards progress domain events to RabbitMQ.
//
// The Publisher subscribes to a domain.EventDispatcher. Dispatch is
// synchronous, so Handle only enqueues; a single worker goroutine owns
// the broker round trip. When the buffer is full the event is dropped
// and counted.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/metrics"
)

// Message is the wire envelope for one progress event
type Message struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	ExerciseID string          `json:"exercise_id"`
	UserID     string          `json:"user_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewMessage wraps event for the wire
func NewMessage(event domain.Event, userID string) (Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s event: %w", event.EventType(), err)
	}
	return Message{
		ID:         event.EventID(),
		Type:       event.EventType(),
		ExerciseID: event.ExerciseKey(),
		UserID:     userID,
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	}, nil
}

// Sender delivers one message to the broker
type Sender interface {
	PublishJSON(ctx context.Context, data any) error
}

var _ Sender = (*Connection)(nil)

// PublisherConfig holds publisher configuration
type PublisherConfig struct {
	UserID         string
	Buffer         int
	PublishTimeout time.Duration
	Logger         *slog.Logger
}

// DefaultPublisherConfig returns sensible defaults
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		Buffer:         64,
		PublishTimeout: 5 * time.Second,
	}
}

// Publisher forwards dispatcher events to a Sender
type Publisher struct {
	sender  Sender
	userID  string
	timeout time.Duration
	logger  *slog.Logger

	pending    chan Message
	mu         sync.Mutex
	stopped    bool
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewPublisher creates a publisher. Call Start before events flow.
func NewPublisher(sender Sender, cfg PublisherConfig) *Publisher {
	defaults := DefaultPublisherConfig()
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaults.Buffer
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaults.PublishTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Publisher{
		sender:  sender,
		userID:  cfg.UserID,
		timeout: cfg.PublishTimeout,
		logger:  cfg.Logger,
		pending: make(chan Message, cfg.Buffer),
	}
}

// Attach subscribes the publisher to every event on d
func (p *Publisher) Attach(d *domain.EventDispatcher) {
	d.SubscribeAll(p.Handle)
}

// Handle enqueues event without blocking
func (p *Publisher) Handle(event domain.Event) {
	msg, err := NewMessage(event, p.userID)
	if err != nil {
		p.logger.Error("failed to encode event", "type", event.EventType(), "error", err)
		metrics.RecordDelivery("failed")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		metrics.RecordDelivery("dropped")
		return
	}

	select {
	case p.pending <- msg:
	default:
		p.logger.Warn("event buffer full, dropping event", "type", msg.Type, "exercise_id", msg.ExerciseID)
		metrics.RecordDelivery("dropped")
	}
}

// Start runs the delivery worker until ctx is done or Stop is called
func (p *Publisher) Start(ctx context.Context) {
	ctx, p.cancelFunc = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.worker(ctx)
}

func (p *Publisher) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-p.pending:
			if !ok {
				return
			}
			p.deliver(ctx, msg)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, msg Message) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.sender.PublishJSON(ctx, msg); err != nil {
		p.logger.Error("failed to publish event",
			"type", msg.Type,
			"exercise_id", msg.ExerciseID,
			"error", err,
		)
		metrics.RecordDelivery("failed")
		return
	}
	p.logger.Debug("published event", "type", msg.Type, "exercise_id", msg.ExerciseID)
	metrics.RecordDelivery("published")
}

// Stop refuses new events, delivers what is buffered and waits for the
// worker. ctx bounds the drain.
func (p *Publisher) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.pending)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if p.cancelFunc != nil {
			p.cancelFunc()
		}
		<-done
	}
	p.logger.Info("event publisher stopped")
}
