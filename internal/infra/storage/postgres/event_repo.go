package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/callguard/internal/core/domain"
)

// EventRepo stores outcome and transition records. Rows are only ever
// inserted.
type EventRepo struct {
	db *DB
}

// NewEventRepo creates a PostgreSQL event repository.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

// EventRecord is a persisted error-event row.
type EventRecord struct {
	ID           int64     `db:"id"`
	RecordType   string    `db:"record_type"`
	Timestamp    time.Time `db:"ts"`
	Service      string    `db:"service_name"`
	Outcome      string    `db:"outcome"`
	ErrorKind    string    `db:"error_kind"`
	ErrorCode    string    `db:"error_code"`
	ErrorMessage string    `db:"error_message"`
	Severity     string    `db:"severity"`
	Attempts     int       `db:"attempts"`
	CircuitState string    `db:"circuit_state"`
}

// InsertOutcome appends one outcome event.
func (r *EventRepo) InsertOutcome(ctx context.Context, ev domain.OutcomeEvent) error {
	query := `
		INSERT INTO error_events (record_type, ts, service_name, outcome, error_kind, error_code, error_message, severity, attempts, circuit_state)
		VALUES ('outcome', $1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		ev.Timestamp,
		ev.Service,
		string(ev.Outcome),
		string(ev.ErrorKind),
		string(ev.ErrorCode),
		ev.ErrorMessage,
		string(ev.Severity),
		ev.Attempts,
		string(ev.CircuitState),
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome event: %w", err)
	}
	return nil
}

// InsertTransition appends one circuit transition event.
func (r *EventRepo) InsertTransition(ctx context.Context, tr domain.CircuitTransition) error {
	query := `
		INSERT INTO error_events (record_type, ts, service_name, outcome, error_message, attempts, circuit_state)
		VALUES ('circuit_transition', $1, $2, '', $3, $4, $5)
	`
	msg := fmt.Sprintf("%s -> %s", tr.From, tr.To)
	_, err := r.db.ExecContext(ctx, query,
		tr.Timestamp,
		tr.Service,
		msg,
		tr.FailureCount,
		string(tr.To),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transition event: %w", err)
	}
	return nil
}

// Recent returns the most recent events, newest first.
func (r *EventRepo) Recent(ctx context.Context, limit int) ([]EventRecord, error) {
	query := `
		SELECT id, record_type, ts, service_name, outcome,
		       COALESCE(error_kind, '') AS error_kind,
		       COALESCE(error_code, '') AS error_code,
		       COALESCE(error_message, '') AS error_message,
		       COALESCE(severity, '') AS severity,
		       attempts, circuit_state
		FROM error_events
		ORDER BY id DESC
		LIMIT $1
	`
	var records []EventRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return records, nil
}
