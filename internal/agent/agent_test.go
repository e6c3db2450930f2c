package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/callguard/internal/core/domain"
	"github.com/vietddude/callguard/internal/resilience"
	"github.com/vietddude/callguard/internal/services"
)

// captureSink records everything emitted, for assertions.
type captureSink struct {
	mu          sync.Mutex
	outcomes    []domain.OutcomeEvent
	transitions []domain.CircuitTransition
	alerts      []domain.Alert
}

func (c *captureSink) EmitOutcome(_ context.Context, ev domain.OutcomeEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, ev)
	return nil
}

func (c *captureSink) EmitTransition(_ context.Context, tr domain.CircuitTransition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitions = append(c.transitions, tr)
	return nil
}

func (c *captureSink) EmitAlert(_ context.Context, a domain.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *captureSink) Close() error { return nil }

func (c *captureSink) alertsBySeverity(sev domain.Severity) []domain.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Alert
	for _, a := range c.alerts {
		if a.Severity == sev {
			out = append(out, a)
		}
	}
	return out
}

func fastConfig() Config {
	return Config{
		Retry: resilience.RetryConfig{
			MaxAttempts:     3,
			InitialDelay:    time.Millisecond,
			BackoffMultiple: 2,
		},
		Breaker: resilience.BreakerConfig{
			FailureThreshold: 3,
			OpenTimeout:      time.Hour,
		},
		CriticalOpenServices: 2,
	}
}

func TestProcessCallHealthyPipeline(t *testing.T) {
	events := &captureSink{}
	a := New(fastConfig(),
		services.NewScriptedSTT(),
		services.NewScriptedLLM(),
		services.NewScriptedTTS(),
		events)

	audio, err := a.ProcessCall(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audio) == 0 {
		t.Error("empty audio output")
	}
	if len(events.outcomes) != 3 {
		t.Fatalf("got %d outcome events, want 3", len(events.outcomes))
	}
	for _, ev := range events.outcomes {
		if ev.Outcome != domain.OutcomeSuccess {
			t.Errorf("%s outcome = %v, want success", ev.Service, ev.Outcome)
		}
	}
	if len(events.alerts) != 0 {
		t.Errorf("healthy pipeline produced %d alerts", len(events.alerts))
	}
}

func TestProcessCallRecoversFromTransientFailures(t *testing.T) {
	events := &captureSink{}
	a := New(fastConfig(),
		services.NewScriptedSTT(domain.CodeTimeout, domain.CodeNetwork, services.CodeNone),
		services.NewScriptedLLM(),
		services.NewScriptedTTS(),
		events)

	if _, err := a.ProcessCall(context.Background(), []byte("audio")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, snap := range a.Snapshots() {
		if snap.FailureCount != 0 {
			t.Errorf("%s failure count = %d, want 0", snap.Service, snap.FailureCount)
		}
		if snap.State != domain.CircuitClosed {
			t.Errorf("%s state = %v, want CLOSED", snap.Service, snap.State)
		}
	}
}

func TestProcessCallPermanentFailureAbortsPipeline(t *testing.T) {
	events := &captureSink{}
	llm := services.NewScriptedLLM(domain.CodeAuthentication)
	tts := services.NewScriptedTTS()
	a := New(fastConfig(), services.NewScriptedSTT(), llm, tts, events)

	_, err := a.ProcessCall(context.Background(), []byte("audio"))
	if err == nil {
		t.Fatal("expected error")
	}
	var se *domain.ServiceError
	if !errors.As(err, &se) || se.Code != domain.CodeAuthentication {
		t.Fatalf("err = %v, want authentication ServiceError", err)
	}
	if llm.Calls() != 1 {
		t.Errorf("llm calls = %d, want 1 (no retry of permanent errors)", llm.Calls())
	}
	if tts.Calls() != 0 {
		t.Errorf("tts calls = %d, want 0 (pipeline aborted)", tts.Calls())
	}

	high := events.alertsBySeverity(domain.SeverityHigh)
	if len(high) != 1 {
		t.Fatalf("got %d HIGH alerts, want 1", len(high))
	}
	if high[0].Service != domain.ServiceLLM {
		t.Errorf("alert service = %q, want LLM", high[0].Service)
	}
}

func TestExhaustionAlertsMedium(t *testing.T) {
	events := &captureSink{}
	a := New(fastConfig(),
		services.NewScriptedSTT(domain.CodeTimeout, domain.CodeTimeout, domain.CodeTimeout),
		services.NewScriptedLLM(),
		services.NewScriptedTTS(),
		events)

	_, err := a.ProcessCall(context.Background(), []byte("audio"))
	var exhausted *resilience.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ExhaustedError", err)
	}

	medium := events.alertsBySeverity(domain.SeverityMedium)
	if len(medium) != 1 {
		t.Fatalf("got %d MEDIUM alerts, want 1", len(medium))
	}
}

func TestCriticalAlertWhenTwoServicesOpen(t *testing.T) {
	events := &captureSink{}
	// Calls 1-3 pass STT and fail permanently at LLM, opening the LLM
	// breaker. Calls 4-6 fail permanently at STT, opening it too. Each
	// failed call records one breaker failure.
	a := New(fastConfig(),
		services.NewScriptedSTT(
			services.CodeNone, services.CodeNone, services.CodeNone,
			domain.CodeAuthentication, domain.CodeAuthentication, domain.CodeAuthentication),
		services.NewScriptedLLM(
			domain.CodeInvalidPayload,
			domain.CodeInvalidPayload,
			domain.CodeInvalidPayload),
		services.NewScriptedTTS(),
		events)

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_, _ = a.ProcessCall(ctx, []byte("audio"))
	}

	snaps := a.Snapshots()
	if snaps[0].State != domain.CircuitOpen || snaps[1].State != domain.CircuitOpen {
		t.Fatalf("STT/LLM breakers = %v/%v, want OPEN/OPEN", snaps[0].State, snaps[1].State)
	}

	critical := events.alertsBySeverity(domain.SeverityCritical)
	if len(critical) != 1 {
		t.Fatalf("got %d CRITICAL alerts, want 1", len(critical))
	}
}

func TestCircuitOpenRejectsWithoutInvocation(t *testing.T) {
	events := &captureSink{}
	stt := services.NewScriptedSTT(
		domain.CodeAuthentication,
		domain.CodeAuthentication,
		domain.CodeAuthentication)
	a := New(fastConfig(), stt, services.NewScriptedLLM(), services.NewScriptedTTS(), events)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = a.ProcessCall(ctx, []byte("audio"))
	}
	if got := stt.Calls(); got != 3 {
		t.Fatalf("stt calls before rejection = %d, want 3", got)
	}

	_, err := a.ProcessCall(ctx, []byte("audio"))
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if got := stt.Calls(); got != 3 {
		t.Errorf("stt calls after rejection = %d, want still 3", got)
	}
}

func TestResetBreaker(t *testing.T) {
	events := &captureSink{}
	a := New(fastConfig(),
		services.NewScriptedSTT(
			domain.CodeAuthentication,
			domain.CodeAuthentication,
			domain.CodeAuthentication),
		services.NewScriptedLLM(),
		services.NewScriptedTTS(),
		events)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = a.ProcessCall(ctx, []byte("audio"))
	}
	if a.Snapshots()[0].State != domain.CircuitOpen {
		t.Fatal("STT breaker should be OPEN")
	}

	if err := a.ResetBreaker(domain.ServiceSTT); err != nil {
		t.Fatalf("ResetBreaker: %v", err)
	}
	if a.Snapshots()[0].State != domain.CircuitClosed {
		t.Error("STT breaker should be CLOSED after reset")
	}

	if err := a.ResetBreaker("nope"); err == nil {
		t.Error("ResetBreaker accepted an unknown service")
	}
}
