package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/practicum/internal/domain"
)

// ResilientConfig holds configuration for the resilient catalog wrapper
type ResilientConfig struct {
	// RetryAttempts is the total number of tries per listing (default: 3)
	RetryAttempts int

	// RetryDelay is the first backoff delay (default: 200ms)
	RetryDelay time.Duration

	// BreakerFailures opens the circuit after this many consecutive
	// failures (default: 5)
	BreakerFailures int

	// BreakerTimeout is how long the circuit stays open (default: 30s)
	BreakerTimeout time.Duration

	Logger *slog.Logger
}

// DefaultResilientConfig returns defaults suited to a local file catalog
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		RetryAttempts:   3,
		RetryDelay:      200 * time.Millisecond,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// Resilient wraps a Catalog with retry and a circuit breaker from fortify
type Resilient struct {
	inner   Catalog
	breaker circuitbreaker.CircuitBreaker[[]domain.ExerciseMeta]
	retrier retry.Retry[[]domain.ExerciseMeta]
	logger  *slog.Logger
}

var _ Catalog = (*Resilient)(nil)

// NewResilient wraps inner
func NewResilient(inner Catalog, cfg ResilientConfig) *Resilient {
	def := DefaultResilientConfig()
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rc := &Resilient{inner: inner, logger: logger}

	failures := cfg.BreakerFailures
	rc.breaker = circuitbreaker.New[[]domain.ExerciseMeta](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= failures
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			rc.logger.Warn("catalog circuit breaker state change",
				"from", from.String(),
				"to", to.String())
		},
	})

	rc.retrier = retry.New[[]domain.ExerciseMeta](retry.Config{
		MaxAttempts:   cfg.RetryAttempts,
		InitialDelay:  cfg.RetryDelay,
		MaxDelay:      cfg.RetryDelay * 10,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryable,
	})

	return rc
}

// ListExercises lists scope through the breaker and retrier
func (r *Resilient) ListExercises(ctx context.Context, scope string) ([]domain.ExerciseMeta, error) {
	return r.breaker.Execute(ctx, func(ctx context.Context) ([]domain.ExerciseMeta, error) {
		return r.retrier.Do(ctx, func(ctx context.Context) ([]domain.ExerciseMeta, error) {
			return r.inner.ListExercises(ctx, scope)
		})
	})
}

// isRetryable keeps cancellation and missing-scope errors from being retried
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, domain.ErrExerciseNotFound)
}
