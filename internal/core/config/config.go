package config

import (
	"time"

	"github.com/vietddude/callguard/internal/agent"
	redisclient "github.com/vietddude/callguard/internal/infra/redis"
	"github.com/vietddude/callguard/internal/infra/storage/postgres"
	"github.com/vietddude/callguard/internal/resilience"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Resilience ResilienceConfig   `yaml:"resilience"`
	Alerting   AlertingConfig     `yaml:"alerting"`
	Services   ServicesConfig     `yaml:"services"`
	Sink       SinkConfig         `yaml:"sink"`
	Logging    LoggingConfig      `yaml:"logging"`
	Redis      redisclient.Config `yaml:"redis"`
	Database   postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ResilienceConfig holds the retry and circuit breaker policy. Durations
// are plain numbers of seconds.
type ResilienceConfig struct {
	InitialDelay      int     `yaml:"initial_delay"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	MaxAttempts       int     `yaml:"max_attempts"`
	FailureThreshold  int     `yaml:"failure_threshold"`
	CircuitTimeout    int     `yaml:"circuit_timeout"`
}

// Retry converts the policy into executor form.
func (c ResilienceConfig) Retry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:     c.MaxAttempts,
		InitialDelay:    time.Duration(c.InitialDelay) * time.Second,
		BackoffMultiple: c.BackoffMultiplier,
	}
}

// Breaker converts the policy into breaker form.
func (c ResilienceConfig) Breaker() resilience.BreakerConfig {
	return resilience.BreakerConfig{
		FailureThreshold: c.FailureThreshold,
		OpenTimeout:      time.Duration(c.CircuitTimeout) * time.Second,
	}
}

// Agent builds the full agent policy.
func (c *AppConfig) Agent() agent.Config {
	return agent.Config{
		Retry:                c.Resilience.Retry(),
		Breaker:              c.Resilience.Breaker(),
		CriticalOpenServices: c.Alerting.CriticalOpenServices,
	}
}

// AlertingConfig holds orchestration-level alerting policy.
type AlertingConfig struct {
	// CriticalOpenServices is how many breakers must be OPEN at once
	// to raise a CRITICAL alert.
	CriticalOpenServices int `yaml:"critical_open_services"`
}

// ServicesConfig holds mock service behavior.
type ServicesConfig struct {
	FailureRate float64 `yaml:"failure_rate"`
}

// SinkConfig holds file sink destinations. Empty paths disable the sink.
type SinkConfig struct {
	ErrorLog string `yaml:"error_log"`
	AlertLog string `yaml:"alert_log"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
