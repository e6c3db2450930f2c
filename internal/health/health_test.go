package health

import (
	"testing"

	"github.com/vietddude/callguard/internal/core/domain"
	"github.com/vietddude/callguard/internal/resilience"
)

func TestBuildReport(t *testing.T) {
	tests := []struct {
		name   string
		snaps  []resilience.Snapshot
		expect SystemStatus
	}{
		{
			name: "all closed",
			snaps: []resilience.Snapshot{
				{Service: "STT", State: domain.CircuitClosed},
				{Service: "LLM", State: domain.CircuitClosed},
			},
			expect: StatusHealthy,
		},
		{
			name: "one half-open",
			snaps: []resilience.Snapshot{
				{Service: "STT", State: domain.CircuitClosed},
				{Service: "LLM", State: domain.CircuitHalfOpen},
			},
			expect: StatusDegraded,
		},
		{
			name: "one open wins over half-open",
			snaps: []resilience.Snapshot{
				{Service: "STT", State: domain.CircuitHalfOpen},
				{Service: "LLM", State: domain.CircuitOpen},
			},
			expect: StatusCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := BuildReport(tt.snaps)
			if report.SystemStatus != tt.expect {
				t.Errorf("system status = %v, want %v", report.SystemStatus, tt.expect)
			}
			if len(report.Services) != len(tt.snaps) {
				t.Errorf("got %d services, want %d", len(report.Services), len(tt.snaps))
			}
		})
	}
}

func TestBuildReportServiceStatus(t *testing.T) {
	report := BuildReport([]resilience.Snapshot{
		{Service: "TTS", State: domain.CircuitOpen, FailureCount: 3},
	})
	sh := report.Services[0]
	if sh.Status != StatusCritical {
		t.Errorf("service status = %v, want critical", sh.Status)
	}
	if sh.FailureCount != 3 {
		t.Errorf("failure count = %d, want 3", sh.FailureCount)
	}
}
