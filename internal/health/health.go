// Package health provides breaker-state health reporting over HTTP.
package health

import (
	"github.com/vietddude/callguard/internal/core/domain"
	"github.com/vietddude/callguard/internal/resilience"
)

// SystemStatus represents the overall health state of the system or a service.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ServiceHealth contains health details for one guarded service.
type ServiceHealth struct {
	Service      string              `json:"service_name"`
	Status       SystemStatus        `json:"status"`
	CircuitState domain.CircuitState `json:"circuit_state"`
	FailureCount int                 `json:"failure_count"`
}

// Report contains the full system health report.
type Report struct {
	SystemStatus     SystemStatus    `json:"system_status"`
	Services         []ServiceHealth `json:"services"`
	UnresolvedAlerts int             `json:"unresolved_alerts,omitempty"`
}

// BuildReport derives system health from breaker snapshots. An OPEN
// breaker marks its service critical, HALF_OPEN degraded; the worst
// service status wins overall.
func BuildReport(snapshots []resilience.Snapshot) Report {
	report := Report{SystemStatus: StatusHealthy}
	for _, snap := range snapshots {
		sh := ServiceHealth{
			Service:      snap.Service,
			Status:       StatusHealthy,
			CircuitState: snap.State,
			FailureCount: snap.FailureCount,
		}
		switch snap.State {
		case domain.CircuitOpen:
			sh.Status = StatusCritical
		case domain.CircuitHalfOpen:
			sh.Status = StatusDegraded
		}
		report.Services = append(report.Services, sh)

		if sh.Status == StatusCritical {
			report.SystemStatus = StatusCritical
		} else if sh.Status == StatusDegraded && report.SystemStatus == StatusHealthy {
			report.SystemStatus = StatusDegraded
		}
	}
	return report
}
