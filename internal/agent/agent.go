// Package agent orchestrates the STT -> LLM -> TTS call pipeline, driving
// every stage through its circuit breaker and the retry executor.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/callguard/internal/core/domain"
	"github.com/vietddude/callguard/internal/metrics"
	"github.com/vietddude/callguard/internal/resilience"
	"github.com/vietddude/callguard/internal/sink"
)

// Transcriber converts audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Generator produces a response for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Config holds the resilience policy shared by all three stages.
type Config struct {
	Retry   resilience.RetryConfig
	Breaker resilience.BreakerConfig

	// CriticalOpenServices is how many breakers must be OPEN at once
	// before a CRITICAL alert is raised. Zero disables aggregation.
	CriticalOpenServices int
}

// Agent owns the per-service breakers and runs the call pipeline. A single
// agent serves many concurrent calls; all of them share the same breakers.
type Agent struct {
	stt Transcriber
	llm Generator
	tts Synthesizer

	exec     *resilience.Executor
	breakers map[string]*resilience.Breaker
	order    []string

	events       sink.Sink
	criticalOpen int
}

// New wires an agent from the three services, the resilience policy, and
// the event sink.
func New(cfg Config, stt Transcriber, llm Generator, tts Synthesizer, events sink.Sink) *Agent {
	a := &Agent{
		stt:          stt,
		llm:          llm,
		tts:          tts,
		events:       events,
		criticalOpen: cfg.CriticalOpenServices,
		order:        []string{domain.ServiceSTT, domain.ServiceLLM, domain.ServiceTTS},
	}
	a.exec = resilience.NewExecutor(cfg.Retry, a.handleOutcome)
	a.breakers = make(map[string]*resilience.Breaker, len(a.order))
	for _, name := range a.order {
		a.breakers[name] = resilience.NewBreaker(name, cfg.Breaker, a.handleTransition)
		metrics.CircuitState.WithLabelValues(name).Set(0)
	}
	return a
}

// ProcessCall runs one voice call through the full pipeline. A stage
// failure aborts the call and surfaces that stage's terminal error.
func (a *Agent) ProcessCall(ctx context.Context, audio []byte) ([]byte, error) {
	callID := uuid.NewString()
	log := slog.With("call_id", callID)
	start := time.Now()
	log.Info("Processing call", "audio_bytes", len(audio))

	text, err := resilience.Run(ctx, a.exec, a.breakers[domain.ServiceSTT],
		func(ctx context.Context) (string, error) {
			return a.stt.Transcribe(ctx, audio)
		})
	if err != nil {
		log.Error("Transcription stage failed", "error", err)
		return nil, fmt.Errorf("stt stage: %w", err)
	}
	log.Debug("Transcribed", "text", text)

	response, err := resilience.Run(ctx, a.exec, a.breakers[domain.ServiceLLM],
		func(ctx context.Context) (string, error) {
			return a.llm.Generate(ctx, text)
		})
	if err != nil {
		log.Error("Generation stage failed", "error", err)
		return nil, fmt.Errorf("llm stage: %w", err)
	}
	log.Debug("Generated response", "text", response)

	out, err := resilience.Run(ctx, a.exec, a.breakers[domain.ServiceTTS],
		func(ctx context.Context) ([]byte, error) {
			return a.tts.Synthesize(ctx, response)
		})
	if err != nil {
		log.Error("Synthesis stage failed", "error", err)
		return nil, fmt.Errorf("tts stage: %w", err)
	}

	elapsed := time.Since(start)
	metrics.PipelineDuration.Observe(elapsed.Seconds())
	log.Info("Call processed", "duration", elapsed, "audio_bytes", len(out))
	return out, nil
}

// Snapshots returns the breaker state of every stage in pipeline order.
func (a *Agent) Snapshots() []resilience.Snapshot {
	snaps := make([]resilience.Snapshot, 0, len(a.order))
	for _, name := range a.order {
		snaps = append(snaps, a.breakers[name].GetSnapshot())
	}
	return snaps
}

// ResetBreaker manually closes the named service's breaker.
func (a *Agent) ResetBreaker(service string) error {
	b, ok := a.breakers[service]
	if !ok {
		return fmt.Errorf("unknown service %q", service)
	}
	b.Reset()
	return nil
}

func (a *Agent) handleOutcome(ev domain.OutcomeEvent) {
	metrics.CallsTotal.WithLabelValues(ev.Service, string(ev.Outcome)).Inc()
	metrics.AttemptsTotal.WithLabelValues(ev.Service).Add(float64(ev.Attempts))

	ctx := context.Background()
	if err := a.events.EmitOutcome(ctx, ev); err != nil {
		slog.Error("Failed to emit outcome event", "service", ev.Service, "error", err)
	}

	// Retry exhaustion always alerts, as does every HIGH outcome.
	if ev.Severity == domain.SeverityHigh || ev.Outcome == domain.OutcomeRetriesExhausted {
		a.alert(ctx, ev.Severity, ev.Service, ev.ErrorMessage)
	}
}

func (a *Agent) handleTransition(tr domain.CircuitTransition) {
	metrics.CircuitTransitionsTotal.WithLabelValues(tr.Service, string(tr.To)).Inc()
	metrics.CircuitState.WithLabelValues(tr.Service).Set(circuitGauge(tr.To))

	ctx := context.Background()
	if err := a.events.EmitTransition(ctx, tr); err != nil {
		slog.Error("Failed to emit transition event", "service", tr.Service, "error", err)
	}

	if tr.To != domain.CircuitOpen {
		return
	}
	a.alert(ctx, domain.SeverityHigh, tr.Service,
		fmt.Sprintf("circuit opened after %d consecutive failures", tr.FailureCount))

	if a.criticalOpen <= 0 {
		return
	}
	var open []string
	for _, name := range a.order {
		if a.breakers[name].State() == domain.CircuitOpen {
			open = append(open, name)
		}
	}
	if len(open) >= a.criticalOpen {
		a.alert(ctx, domain.SeverityCritical, "pipeline",
			fmt.Sprintf("%d services down simultaneously: %v", len(open), open))
	}
}

func (a *Agent) alert(ctx context.Context, severity domain.Severity, service, message string) {
	metrics.AlertsTotal.WithLabelValues(string(severity)).Inc()
	alert := domain.Alert{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Severity:     severity,
		Service:      service,
		ErrorMessage: message,
		Status:       domain.AlertUnresolved,
	}
	if err := a.events.EmitAlert(ctx, alert); err != nil {
		slog.Error("Failed to emit alert", "service", service, "error", err)
	}
}

func circuitGauge(s domain.CircuitState) float64 {
	switch s {
	case domain.CircuitOpen:
		return 2
	case domain.CircuitHalfOpen:
		return 1
	default:
		return 0
	}
}
