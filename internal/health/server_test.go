package health

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/callguard/internal/agent"
	"github.com/vietddude/callguard/internal/core/domain"
	"github.com/vietddude/callguard/internal/resilience"
	"github.com/vietddude/callguard/internal/services"
	"github.com/vietddude/callguard/internal/sink"
)

func newTestServer(stt *services.STT) *Server {
	cfg := agent.Config{
		Retry:   resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffMultiple: 2},
		Breaker: resilience.BreakerConfig{FailureThreshold: 3, OpenTimeout: time.Hour},
	}
	a := agent.New(cfg, stt, services.NewScriptedLLM(), services.NewScriptedTTS(), sink.NewLogSink())
	return NewServer(a, nil, 0)
}

func TestHandleCallSuccess(t *testing.T) {
	s := newTestServer(services.NewScriptedSTT())

	req := httptest.NewRequest(http.MethodPost, "/call", strings.NewReader(`{"audio":"hello"}`))
	rec := httptest.NewRecorder()
	s.handleCall(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
}

func TestHandleCallRejectsMissingAudio(t *testing.T) {
	s := newTestServer(services.NewScriptedSTT())

	req := httptest.NewRequest(http.MethodPost, "/call", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.handleCall(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCallCircuitOpen(t *testing.T) {
	stt := services.NewScriptedSTT(
		domain.CodeAuthentication,
		domain.CodeAuthentication,
		domain.CodeAuthentication)
	s := newTestServer(stt)

	// Open the STT breaker with three failed calls.
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/call", strings.NewReader(`{"audio":"hello"}`))
		s.handleCall(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodPost, "/call", strings.NewReader(`{"audio":"hello"}`))
	rec := httptest.NewRecorder()
	s.handleCall(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleHealthReflectsOpenBreaker(t *testing.T) {
	stt := services.NewScriptedSTT(
		domain.CodeAuthentication,
		domain.CodeAuthentication,
		domain.CodeAuthentication)
	s := newTestServer(stt)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy status = %d, want 200", rec.Code)
	}

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/call", strings.NewReader(`{"audio":"hello"}`))
		s.handleCall(httptest.NewRecorder(), req)
	}

	rec = httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status with open breaker = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(StatusCritical)) {
		t.Errorf("body %q does not report critical", rec.Body.String())
	}
}
