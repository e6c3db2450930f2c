package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/callguard/internal/agent"
	"github.com/vietddude/callguard/internal/resilience"
)

// AlertCounter reports the number of unresolved alerts, when a persistent
// alert store is configured.
type AlertCounter interface {
	CountUnresolved(ctx context.Context) (int, error)
}

// Server provides HTTP endpoints for call submission and health monitoring.
type Server struct {
	agent  *agent.Agent
	alerts AlertCounter // may be nil
	server *http.Server
}

// NewServer creates a new HTTP server around the agent.
func NewServer(a *agent.Agent, alerts AlertCounter, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		agent:  a,
		alerts: alerts,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/call", s.handleCall)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type callRequest struct {
	Audio string `json:"audio"`
}

type callResponse struct {
	Status     string `json:"status"`
	AudioBytes int    `json:"audio_bytes,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, callResponse{Status: "error", Error: "failed to read body"})
		return
	}
	var req callRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Audio == "" {
		writeJSON(w, http.StatusBadRequest, callResponse{Status: "error", Error: "audio field required"})
		return
	}

	audio, err := s.agent.ProcessCall(r.Context(), []byte(req.Audio))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, resilience.ErrCircuitOpen) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, callResponse{Status: "failed", Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, callResponse{Status: "ok", AudioBytes: len(audio)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := BuildReport(s.agent.Snapshots())

	status := http.StatusOK
	if report.SystemStatus == StatusCritical {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": string(report.SystemStatus)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := BuildReport(s.agent.Snapshots())
	if s.alerts != nil {
		count, err := s.alerts.CountUnresolved(r.Context())
		if err != nil {
			slog.Warn("Failed to count unresolved alerts", "error", err)
		} else {
			report.UnresolvedAlerts = count
		}
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
