package resilience

import (
	"sync"
	"time"

	"github.com/vietddude/callguard/internal/core/domain"
)

// BreakerConfig defines the opening threshold and recovery window.
type BreakerConfig struct {
	FailureThreshold int
	OpenTimeout      time.Duration
}

// DefaultBreakerConfig provides sensible defaults.
var DefaultBreakerConfig = BreakerConfig{
	FailureThreshold: 3,
	OpenTimeout:      60 * time.Second,
}

// TransitionFunc receives breaker state changes.
type TransitionFunc func(t domain.CircuitTransition)

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	Service      string              `json:"service_name"`
	State        domain.CircuitState `json:"state"`
	FailureCount int                 `json:"failure_count"`
}

// Breaker guards admission to one service.
//
// CLOSED admits everything. After FailureThreshold consecutive recorded
// failures it transitions to OPEN and rejects admission until OpenTimeout
// has elapsed, at which point exactly one caller is admitted as the
// HALF_OPEN probe. The probe's result decides between CLOSED and a fresh
// OPEN window. All state is guarded by one mutex; transitions are
// delivered to the callback after the lock is released.
type Breaker struct {
	service      string
	cfg          BreakerConfig
	onTransition TransitionFunc

	mu       sync.Mutex
	state    domain.CircuitState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a CLOSED breaker for one service.
func NewBreaker(service string, cfg BreakerConfig, onTransition TransitionFunc) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultBreakerConfig.OpenTimeout
	}
	return &Breaker{
		service:      service,
		cfg:          cfg,
		onTransition: onTransition,
		state:        domain.CircuitClosed,
		now:          time.Now,
	}
}

// Service returns the guarded service name.
func (b *Breaker) Service() string {
	return b.service
}

// Allow reports whether a call may proceed. The OPEN-window expiry check
// and the HALF_OPEN transition happen under the same lock, so concurrent
// callers at the window boundary produce exactly one probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	var t *domain.CircuitTransition

	var admitted bool
	switch b.state {
	case domain.CircuitClosed:
		admitted = true
	case domain.CircuitOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
			t = b.transitionLocked(domain.CircuitHalfOpen)
			admitted = true
		}
	case domain.CircuitHalfOpen:
		// Probe already in flight.
		admitted = false
	}

	b.mu.Unlock()
	b.emit(t)
	return admitted
}

// RecordSuccess resets the failure streak. A HALF_OPEN probe success
// closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	var t *domain.CircuitTransition

	switch b.state {
	case domain.CircuitClosed:
		b.failures = 0
	case domain.CircuitHalfOpen:
		b.failures = 0
		t = b.transitionLocked(domain.CircuitClosed)
	}

	b.mu.Unlock()
	b.emit(t)
}

// RecordFailure extends the failure streak. Crossing the threshold while
// CLOSED opens the circuit; a HALF_OPEN probe failure reopens it with a
// fresh window.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	var t *domain.CircuitTransition

	b.failures++
	switch b.state {
	case domain.CircuitClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			t = b.transitionLocked(domain.CircuitOpen)
		}
	case domain.CircuitHalfOpen:
		b.openedAt = b.now()
		t = b.transitionLocked(domain.CircuitOpen)
	}

	b.mu.Unlock()
	b.emit(t)
}

// State returns the current circuit state.
func (b *Breaker) State() domain.CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// GetSnapshot returns a point-in-time view for status reporting.
func (b *Breaker) GetSnapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Service:      b.service,
		State:        b.state,
		FailureCount: b.failures,
	}
}

// Reset manually closes the breaker and clears the failure streak.
func (b *Breaker) Reset() {
	b.mu.Lock()
	var t *domain.CircuitTransition

	b.failures = 0
	if b.state != domain.CircuitClosed {
		t = b.transitionLocked(domain.CircuitClosed)
	}

	b.mu.Unlock()
	b.emit(t)
}

func (b *Breaker) transitionLocked(to domain.CircuitState) *domain.CircuitTransition {
	t := &domain.CircuitTransition{
		Timestamp:    b.now(),
		Service:      b.service,
		From:         b.state,
		To:           to,
		FailureCount: b.failures,
	}
	b.state = to
	return t
}

func (b *Breaker) emit(t *domain.CircuitTransition) {
	if t != nil && b.onTransition != nil {
		b.onTransition(*t)
	}
}
