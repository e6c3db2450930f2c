package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file. Environment variables in the
// file are expanded; unrecognized keys are ignored; missing keys fall back
// to the documented defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied, for callers
// that run without a config file.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Resilience.InitialDelay == 0 {
		cfg.Resilience.InitialDelay = 5
	}
	if cfg.Resilience.BackoffMultiplier == 0 {
		cfg.Resilience.BackoffMultiplier = 2
	}
	if cfg.Resilience.MaxAttempts == 0 {
		cfg.Resilience.MaxAttempts = 3
	}
	if cfg.Resilience.FailureThreshold == 0 {
		cfg.Resilience.FailureThreshold = 3
	}
	if cfg.Resilience.CircuitTimeout == 0 {
		cfg.Resilience.CircuitTimeout = 60
	}
	if cfg.Alerting.CriticalOpenServices == 0 {
		cfg.Alerting.CriticalOpenServices = 2
	}
	if cfg.Services.FailureRate == 0 {
		cfg.Services.FailureRate = 0.3
	}
	if cfg.Sink.ErrorLog == "" {
		cfg.Sink.ErrorLog = "logs/error_log.jsonl"
	}
	if cfg.Sink.AlertLog == "" {
		cfg.Sink.AlertLog = "logs/alerts.jsonl"
	}
}
