package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/callguard/internal/core/domain"
)

const (
	eventStream = "callguard:events"
	alertStream = "callguard:alerts"

	// Streams are capped so a long-running process cannot grow them
	// without bound; trimming is approximate (XADD MAXLEN ~).
	maxStreamLen = 100_000
)

// StreamSink appends events to capped Redis streams.
type StreamSink struct {
	client *Client
}

// NewStreamSink creates a stream-backed sink on an existing client.
func NewStreamSink(client *Client) *StreamSink {
	return &StreamSink{client: client}
}

func (s *StreamSink) EmitOutcome(ctx context.Context, ev domain.OutcomeEvent) error {
	values := map[string]any{
		"record_type":   "outcome",
		"timestamp":     ev.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"service_name":  ev.Service,
		"outcome":       string(ev.Outcome),
		"severity":      string(ev.Severity),
		"attempts":      ev.Attempts,
		"circuit_state": string(ev.CircuitState),
	}
	if ev.Outcome != domain.OutcomeSuccess {
		values["error_kind"] = string(ev.ErrorKind)
		values["error_code"] = string(ev.ErrorCode)
		values["error_message"] = ev.ErrorMessage
	}
	return s.add(ctx, eventStream, values)
}

func (s *StreamSink) EmitTransition(ctx context.Context, tr domain.CircuitTransition) error {
	return s.add(ctx, eventStream, map[string]any{
		"record_type":   "circuit_transition",
		"timestamp":     tr.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"service_name":  tr.Service,
		"from_state":    string(tr.From),
		"to_state":      string(tr.To),
		"failure_count": tr.FailureCount,
	})
}

func (s *StreamSink) EmitAlert(ctx context.Context, a domain.Alert) error {
	return s.add(ctx, alertStream, map[string]any{
		"id":            a.ID,
		"timestamp":     a.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"severity":      string(a.Severity),
		"service_name":  a.Service,
		"error_message": a.ErrorMessage,
		"status":        string(a.Status),
	})
}

func (s *StreamSink) Close() error {
	return nil // client is shared, closed by its owner
}

func (s *StreamSink) add(ctx context.Context, stream string, values map[string]any) error {
	err := s.client.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", stream, err)
	}
	return nil
}
