// Package sink delivers resilience events to logging and alerting consumers.
package sink

import (
	"context"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/vietddude/callguard/internal/core/domain"
)

// Sink consumes outcome events, circuit transitions, and alerts.
type Sink interface {
	EmitOutcome(ctx context.Context, ev domain.OutcomeEvent) error
	EmitTransition(ctx context.Context, tr domain.CircuitTransition) error
	EmitAlert(ctx context.Context, a domain.Alert) error
	Close() error
}

// Multi fans events out to several sinks. Delivery continues past
// individual sink failures; errors are combined.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out sink.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) EmitOutcome(ctx context.Context, ev domain.OutcomeEvent) error {
	var err error
	for _, s := range m.sinks {
		err = multierr.Append(err, s.EmitOutcome(ctx, ev))
	}
	return err
}

func (m *Multi) EmitTransition(ctx context.Context, tr domain.CircuitTransition) error {
	var err error
	for _, s := range m.sinks {
		err = multierr.Append(err, s.EmitTransition(ctx, tr))
	}
	return err
}

func (m *Multi) EmitAlert(ctx context.Context, a domain.Alert) error {
	var err error
	for _, s := range m.sinks {
		err = multierr.Append(err, s.EmitAlert(ctx, a))
	}
	return err
}

func (m *Multi) Close() error {
	var err error
	for _, s := range m.sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}

// LogSink writes events to the process logger.
type LogSink struct{}

// NewLogSink creates a slog-backed sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) EmitOutcome(_ context.Context, ev domain.OutcomeEvent) error {
	attrs := []any{
		"service", ev.Service,
		"outcome", ev.Outcome,
		"severity", ev.Severity,
		"attempts", ev.Attempts,
		"circuit_state", ev.CircuitState,
	}
	if ev.Outcome == domain.OutcomeSuccess {
		slog.Info("Call outcome", attrs...)
		return nil
	}
	attrs = append(attrs, "error_kind", ev.ErrorKind, "error_code", ev.ErrorCode, "error", ev.ErrorMessage)
	slog.Warn("Call outcome", attrs...)
	return nil
}

func (s *LogSink) EmitTransition(_ context.Context, tr domain.CircuitTransition) error {
	slog.Warn("Circuit state change",
		"service", tr.Service,
		"from", tr.From,
		"to", tr.To,
		"failure_count", tr.FailureCount)
	return nil
}

func (s *LogSink) EmitAlert(_ context.Context, a domain.Alert) error {
	slog.Error("ALERT",
		"id", a.ID,
		"severity", a.Severity,
		"service", a.Service,
		"error", a.ErrorMessage,
		"status", a.Status)
	return nil
}

func (s *LogSink) Close() error {
	return nil
}
