package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vietddude/callguard/internal/core/domain"
)

// FileSink persists events as JSON lines in append-only files: one file
// for outcome/transition records, one for alerts.
type FileSink struct {
	mu       sync.Mutex
	eventLog *os.File
	alertLog *os.File
}

// NewFileSink opens (creating if needed) the event and alert log files.
func NewFileSink(eventPath, alertPath string) (*FileSink, error) {
	eventLog, err := openAppend(eventPath)
	if err != nil {
		return nil, err
	}
	alertLog, err := openAppend(alertPath)
	if err != nil {
		_ = eventLog.Close()
		return nil, err
	}
	return &FileSink{eventLog: eventLog, alertLog: alertLog}, nil
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func (s *FileSink) EmitOutcome(_ context.Context, ev domain.OutcomeEvent) error {
	type record struct {
		RecordType string `json:"record_type"`
		domain.OutcomeEvent
	}
	return s.appendJSON(s.eventLog, record{RecordType: "outcome", OutcomeEvent: ev})
}

func (s *FileSink) EmitTransition(_ context.Context, tr domain.CircuitTransition) error {
	type record struct {
		RecordType string `json:"record_type"`
		domain.CircuitTransition
	}
	return s.appendJSON(s.eventLog, record{RecordType: "circuit_transition", CircuitTransition: tr})
}

func (s *FileSink) EmitAlert(_ context.Context, a domain.Alert) error {
	return s.appendJSON(s.alertLog, a)
}

func (s *FileSink) appendJSON(f *os.File, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eventLog.Close(); err != nil {
		_ = s.alertLog.Close()
		return err
	}
	return s.alertLog.Close()
}
