// Package control wires the application together and manages its lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/callguard/internal/agent"
	"github.com/vietddude/callguard/internal/core/config"
	"github.com/vietddude/callguard/internal/health"
	redisclient "github.com/vietddude/callguard/internal/infra/redis"
	"github.com/vietddude/callguard/internal/infra/storage/postgres"
	"github.com/vietddude/callguard/internal/services"
	"github.com/vietddude/callguard/internal/sink"
)

// Service is the main application struct that owns the agent, its sinks,
// and the HTTP server.
type Service struct {
	cfg         *config.AppConfig
	agent       *agent.Agent
	server      *health.Server
	events      sink.Sink
	db          *postgres.DB
	redisClient *redisclient.Client
}

// NewService creates a Service with all dependencies initialized.
func NewService(cfg *config.AppConfig) (*Service, error) {
	s := &Service{cfg: cfg}

	// Event sinks: the process log always, files/redis/postgres when
	// configured.
	sinks := []sink.Sink{sink.NewLogSink()}

	if cfg.Sink.ErrorLog != "" && cfg.Sink.AlertLog != "" {
		fileSink, err := sink.NewFileSink(cfg.Sink.ErrorLog, cfg.Sink.AlertLog)
		if err != nil {
			return nil, fmt.Errorf("failed to init file sink: %w", err)
		}
		sinks = append(sinks, fileSink)
	}

	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			s.closePartial()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		s.redisClient = rc
		sinks = append(sinks, redisclient.NewStreamSink(rc))
		slog.Info("Redis event stream enabled")
	}

	var alertCounter health.AlertCounter
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			s.closePartial()
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		s.db = db

		if err := goose.SetDialect("postgres"); err != nil {
			s.closePartial()
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			s.closePartial()
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		sinks = append(sinks, postgres.NewSink(db))
		alertCounter = postgres.NewAlertRepo(db)
		slog.Info("Using PostgreSQL event storage")
	}

	s.events = sink.NewMulti(sinks...)

	rate := cfg.Services.FailureRate
	s.agent = agent.New(cfg.Agent(),
		services.NewSTT(rate),
		services.NewLLM(rate),
		services.NewTTS(rate),
		s.events)

	s.server = health.NewServer(s.agent, alertCounter, cfg.Server.Port)
	return s, nil
}

// Agent exposes the call pipeline.
func (s *Service) Agent() *agent.Agent {
	return s.agent
}

// Start launches the HTTP server. It returns once the server is serving.
func (s *Service) Start(ctx context.Context) error {
	slog.Info("Starting callguard", "port", s.cfg.Server.Port)
	go func() {
		if err := s.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts the service down in reverse dependency order.
func (s *Service) Stop(ctx context.Context) error {
	slog.Info("Stopping callguard")
	var firstErr error

	if err := s.server.Stop(ctx); err != nil {
		firstErr = err
	}
	if err := s.events.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) closePartial() {
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
