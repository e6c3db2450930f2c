package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsTotal tracks managed service calls by terminal outcome
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callguard_service_calls_total",
			Help: "Total number of managed service calls by terminal outcome",
		},
		[]string{"service", "outcome"},
	)

	// AttemptsTotal tracks underlying invocation attempts per service
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callguard_service_attempts_total",
			Help: "Total number of underlying invocation attempts",
		},
		[]string{"service"},
	)

	// CircuitState tracks the breaker state per service (0=closed, 1=half-open, 2=open)
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "callguard_circuit_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service"},
	)

	// CircuitTransitionsTotal tracks breaker state changes
	CircuitTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callguard_circuit_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"service", "to"},
	)

	// AlertsTotal tracks emitted alerts by severity
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callguard_alerts_total",
			Help: "Total number of alerts emitted",
		},
		[]string{"severity"},
	)

	// PipelineDuration tracks end-to-end call pipeline latency
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "callguard_pipeline_duration_seconds",
			Help:    "End-to-end call pipeline latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
