package postgres

import (
	"context"

	"github.com/vietddude/callguard/internal/core/domain"
)

// Sink adapts the repositories to the event sink contract.
type Sink struct {
	events *EventRepo
	alerts *AlertRepo
}

// NewSink creates a database-backed sink.
func NewSink(db *DB) *Sink {
	return &Sink{events: NewEventRepo(db), alerts: NewAlertRepo(db)}
}

func (s *Sink) EmitOutcome(ctx context.Context, ev domain.OutcomeEvent) error {
	return s.events.InsertOutcome(ctx, ev)
}

func (s *Sink) EmitTransition(ctx context.Context, tr domain.CircuitTransition) error {
	return s.events.InsertTransition(ctx, tr)
}

func (s *Sink) EmitAlert(ctx context.Context, a domain.Alert) error {
	return s.alerts.Insert(ctx, a)
}

func (s *Sink) Close() error {
	return nil // db is shared, closed by its owner
}
