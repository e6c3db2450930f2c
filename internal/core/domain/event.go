package domain

import "time"

// Names of the guarded pipeline services.
const (
	ServiceSTT = "STT"
	ServiceLLM = "LLM"
	ServiceTTS = "TTS"
)

// CircuitState is the admission state of a service's circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

// Outcome is the single terminal result of one managed invocation.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomePermanentFailure Outcome = "permanent_failure"
	OutcomeRetriesExhausted Outcome = "retries_exhausted"
	OutcomeCircuitOpen      Outcome = "circuit_open"
)

// RetryAttempt records one attempt within a managed invocation. It lives
// only for the duration of that invocation.
type RetryAttempt struct {
	Number int
	Delay  time.Duration // backoff applied before this attempt, zero for the first
	Err    error
}

// OutcomeEvent is emitted once per managed invocation.
type OutcomeEvent struct {
	Timestamp    time.Time    `json:"timestamp"`
	Service      string       `json:"service_name"`
	Outcome      Outcome      `json:"outcome"`
	ErrorKind    ErrorKind    `json:"error_kind,omitempty"`
	ErrorCode    FailureCode  `json:"error_code,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Severity     Severity     `json:"severity"`
	Attempts     int          `json:"attempts"`
	CircuitState CircuitState `json:"circuit_state"`
}

// CircuitTransition is emitted whenever a breaker changes state.
type CircuitTransition struct {
	Timestamp    time.Time    `json:"timestamp"`
	Service      string       `json:"service_name"`
	From         CircuitState `json:"from_state"`
	To           CircuitState `json:"to_state"`
	FailureCount int          `json:"failure_count"`
}

// AlertStatus tracks whether an alert has been acted on.
type AlertStatus string

const (
	AlertUnresolved AlertStatus = "UNRESOLVED"
	AlertResolved   AlertStatus = "RESOLVED"
)

// Alert is the record produced for every HIGH/CRITICAL event and for
// every retry-exhaustion outcome.
type Alert struct {
	ID           string      `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	Severity     Severity    `json:"severity"`
	Service      string      `json:"service_name"`
	ErrorMessage string      `json:"error_message"`
	Status       AlertStatus `json:"status"`
}
