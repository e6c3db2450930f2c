package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/callguard/internal/core/domain"
)

// AlertRepo stores alert records.
type AlertRepo struct {
	db *DB
}

// NewAlertRepo creates a PostgreSQL alert repository.
func NewAlertRepo(db *DB) *AlertRepo {
	return &AlertRepo{db: db}
}

// AlertRecord is a persisted alert row.
type AlertRecord struct {
	ID           string       `db:"id"`
	Timestamp    time.Time    `db:"ts"`
	Severity     string       `db:"severity"`
	Service      string       `db:"service_name"`
	ErrorMessage string       `db:"error_message"`
	Status       string       `db:"status"`
	ResolvedAt   sql.NullTime `db:"resolved_at"`
}

// Insert appends one alert.
func (r *AlertRepo) Insert(ctx context.Context, a domain.Alert) error {
	query := `
		INSERT INTO alerts (id, ts, severity, service_name, error_message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.Timestamp,
		string(a.Severity),
		a.Service,
		a.ErrorMessage,
		string(a.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// ListUnresolved returns all unresolved alerts, newest first.
func (r *AlertRepo) ListUnresolved(ctx context.Context) ([]AlertRecord, error) {
	query := `
		SELECT id, ts, severity, service_name, error_message, status, resolved_at
		FROM alerts
		WHERE status = 'UNRESOLVED'
		ORDER BY ts DESC
	`
	var records []AlertRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	return records, nil
}

// CountUnresolved returns the number of unresolved alerts.
func (r *AlertRepo) CountUnresolved(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM alerts WHERE status = 'UNRESOLVED'`)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

// Resolve marks one alert as resolved.
func (r *AlertRepo) Resolve(ctx context.Context, id string) error {
	query := `
		UPDATE alerts
		SET status = 'RESOLVED', resolved_at = NOW()
		WHERE id = $1 AND status = 'UNRESOLVED'
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("alert not found or already resolved")
	}
	return nil
}
