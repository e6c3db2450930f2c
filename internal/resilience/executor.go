package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/callguard/internal/core/domain"
)

// RetryConfig defines retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    5 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrCircuitOpen is returned when the breaker rejects admission. It is not
// a service failure and is never classified.
var ErrCircuitOpen = errors.New("circuit open")

// ExhaustedError reports a call that failed transiently on every attempt.
type ExhaustedError struct {
	Service  string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempts exhausted: %v", e.Service, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// CallFunc performs the actual service invocation.
type CallFunc func(ctx context.Context) (any, error)

// OutcomeFunc receives the terminal outcome of each managed invocation.
type OutcomeFunc func(ev domain.OutcomeEvent)

// Executor runs one logical call against one service, applying bounded
// exponential backoff for transient failures while respecting the
// service's circuit breaker. It surfaces exactly one terminal outcome per
// invocation: success, permanent failure, retries exhausted, or
// circuit-open rejection.
type Executor struct {
	cfg       RetryConfig
	onOutcome OutcomeFunc

	// Test hooks.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewExecutor creates an executor with the given retry policy.
func NewExecutor(cfg RetryConfig, onOutcome OutcomeFunc) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultRetryConfig.InitialDelay
	}
	if cfg.BackoffMultiple <= 0 {
		cfg.BackoffMultiple = DefaultRetryConfig.BackoffMultiple
	}
	return &Executor{cfg: cfg, onOutcome: onOutcome, now: time.Now}
}

// Execute runs fn through the breaker with retry and backoff.
//
// Admission is checked before every attempt; a rejection terminates the
// invocation immediately without counting against the retry budget.
// Transient failures are retried with delays InitialDelay, InitialDelay *
// BackoffMultiple, ... applied before attempts 2..N. Permanent failures
// are never retried. The breaker records one failure per terminal failure
// outcome, so its streak counts failing logical calls rather than
// individual attempts. The backoff wait holds no locks.
func (e *Executor) Execute(ctx context.Context, b *Breaker, fn CallFunc) (any, error) {
	service := b.Service()
	delay := e.cfg.InitialDelay
	var applied time.Duration // backoff applied before the current attempt
	var lastErr error
	var history []domain.RetryAttempt

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if !b.Allow() {
			e.emit(domain.OutcomeEvent{
				Timestamp:    e.now(),
				Service:      service,
				Outcome:      domain.OutcomeCircuitOpen,
				Severity:     domain.SeverityLow,
				Attempts:     attempt - 1,
				CircuitState: b.State(),
			})
			return nil, fmt.Errorf("%s: %w", service, ErrCircuitOpen)
		}

		result, err := fn(ctx)
		if err == nil {
			b.RecordSuccess()
			e.emit(domain.OutcomeEvent{
				Timestamp:    e.now(),
				Service:      service,
				Outcome:      domain.OutcomeSuccess,
				Severity:     domain.SeverityLow,
				Attempts:     attempt,
				CircuitState: b.State(),
			})
			if attempt > 1 {
				slog.Info("Call succeeded after retries", "service", service, "attempts", attempt)
			}
			return result, nil
		}

		lastErr = err
		history = append(history, domain.RetryAttempt{Number: attempt, Delay: applied, Err: err})

		if Classify(err) == domain.ErrorKindPermanent {
			b.RecordFailure()
			e.emit(e.failureEvent(service, b, domain.OutcomePermanentFailure, domain.SeverityHigh, attempt, err))
			return nil, err
		}

		slog.Warn("Transient failure",
			"service", service,
			"attempt", attempt,
			"max_attempts", e.cfg.MaxAttempts,
			"error", err)

		if attempt == e.cfg.MaxAttempts {
			break
		}

		slog.Debug("Backing off before retry", "service", service, "delay", delay)
		if err := e.wait(ctx, delay); err != nil {
			return nil, err
		}
		applied = delay
		delay = time.Duration(float64(delay) * e.cfg.BackoffMultiple)
	}

	b.RecordFailure()
	slog.Error("All retries exhausted", "service", service, "attempts", len(history))
	e.emit(e.failureEvent(service, b, domain.OutcomeRetriesExhausted, domain.SeverityMedium, e.cfg.MaxAttempts, lastErr))
	return nil, &ExhaustedError{Service: service, Attempts: e.cfg.MaxAttempts, Last: lastErr}
}

// Run executes fn through the executor and breaker, preserving the result type.
func Run[T any](ctx context.Context, e *Executor, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := e.Execute(ctx, b, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (e *Executor) failureEvent(
	service string,
	b *Breaker,
	outcome domain.Outcome,
	severity domain.Severity,
	attempts int,
	err error,
) domain.OutcomeEvent {
	ev := domain.OutcomeEvent{
		Timestamp:    e.now(),
		Service:      service,
		Outcome:      outcome,
		ErrorKind:    Classify(err),
		ErrorMessage: err.Error(),
		Severity:     severity,
		Attempts:     attempts,
		CircuitState: b.State(),
	}
	var se *domain.ServiceError
	if errors.As(err, &se) {
		ev.ErrorCode = se.Code
	}
	return ev
}

func (e *Executor) emit(ev domain.OutcomeEvent) {
	if e.onOutcome != nil {
		e.onOutcome(ev)
	}
}

func (e *Executor) wait(ctx context.Context, d time.Duration) error {
	if e.sleep != nil {
		return e.sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
