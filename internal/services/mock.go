// Package services provides mock STT, LLM, and TTS implementations with
// injectable failure behavior for demos and tests.
package services

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vietddude/callguard/internal/core/domain"
)

// FaultPlan decides whether a mock call fails and with which condition.
// A scripted sequence, when set, is consumed before any random behavior.
type FaultPlan struct {
	mu     sync.Mutex
	rate   float64
	codes  []domain.FailureCode
	script []domain.FailureCode // CodeNone entries mean success
	rng    *rand.Rand
}

// CodeNone marks a successful step in a scripted fault sequence.
const CodeNone = domain.FailureCode("")

// NewFaultPlan creates a plan that fails with probability rate, picking
// uniformly from codes.
func NewFaultPlan(rate float64, codes ...domain.FailureCode) *FaultPlan {
	return &FaultPlan{
		rate:  rate,
		codes: codes,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Script replaces random behavior with a fixed sequence of outcomes. Once
// the script is consumed, subsequent calls succeed.
func (p *FaultPlan) Script(codes ...domain.FailureCode) *FaultPlan {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, codes...)
	return p
}

func (p *FaultPlan) next(service, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.script) > 0 {
		code := p.script[0]
		p.script = p.script[1:]
		if code == CodeNone {
			return nil
		}
		return domain.NewServiceError(code, service, message)
	}

	if len(p.codes) == 0 || p.rng.Float64() >= p.rate {
		return nil
	}
	code := p.codes[p.rng.Intn(len(p.codes))]
	return domain.NewServiceError(code, service, message)
}

// STT is a mock speech-to-text service.
type STT struct {
	plan  *FaultPlan
	delay time.Duration
	calls atomic.Int64
}

// NewSTT creates a mock STT that fails with timeout, rate-limit,
// network, or authentication errors.
func NewSTT(failureRate float64) *STT {
	return &STT{plan: NewFaultPlan(failureRate,
		domain.CodeTimeout,
		domain.CodeRateLimit,
		domain.CodeNetwork,
		domain.CodeAuthentication,
	)}
}

// NewScriptedSTT creates a mock STT driven by a fixed fault sequence.
func NewScriptedSTT(codes ...domain.FailureCode) *STT {
	return &STT{plan: NewFaultPlan(0).Script(codes...)}
}

// Transcribe converts audio to text.
func (s *STT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	s.calls.Add(1)
	if err := simulate(ctx, s.delay); err != nil {
		return "", err
	}
	if err := s.plan.next(domain.ServiceSTT, "speech recognition failed"); err != nil {
		return "", err
	}
	return "Hello, this is the transcribed text from audio", nil
}

// Calls returns how many times the service was invoked.
func (s *STT) Calls() int64 {
	return s.calls.Load()
}

// LLM is a mock language model service.
type LLM struct {
	plan  *FaultPlan
	delay time.Duration
	calls atomic.Int64
}

// NewLLM creates a mock LLM that fails with timeout, unavailable,
// rate-limit, or invalid-payload errors.
func NewLLM(failureRate float64) *LLM {
	return &LLM{plan: NewFaultPlan(failureRate,
		domain.CodeTimeout,
		domain.CodeServiceUnavailable,
		domain.CodeRateLimit,
		domain.CodeInvalidPayload,
	)}
}

// NewScriptedLLM creates a mock LLM driven by a fixed fault sequence.
func NewScriptedLLM(codes ...domain.FailureCode) *LLM {
	return &LLM{plan: NewFaultPlan(0).Script(codes...)}
}

// Generate produces a response for the prompt.
func (l *LLM) Generate(ctx context.Context, prompt string) (string, error) {
	l.calls.Add(1)
	if err := simulate(ctx, l.delay); err != nil {
		return "", err
	}
	if err := l.plan.next(domain.ServiceLLM, "response generation failed"); err != nil {
		return "", err
	}
	return "This is a generated response from the AI assistant", nil
}

// Calls returns how many times the service was invoked.
func (l *LLM) Calls() int64 {
	return l.calls.Load()
}

// TTS is a mock text-to-speech service.
type TTS struct {
	plan  *FaultPlan
	delay time.Duration
	calls atomic.Int64
}

// NewTTS creates a mock TTS that fails with timeout, network,
// rate-limit, or voice-not-found errors.
func NewTTS(failureRate float64) *TTS {
	return &TTS{plan: NewFaultPlan(failureRate,
		domain.CodeTimeout,
		domain.CodeNetwork,
		domain.CodeRateLimit,
		domain.CodeNotFound,
	)}
}

// NewScriptedTTS creates a mock TTS driven by a fixed fault sequence.
func NewScriptedTTS(codes ...domain.FailureCode) *TTS {
	return &TTS{plan: NewFaultPlan(0).Script(codes...)}
}

// Synthesize converts text to audio.
func (t *TTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	t.calls.Add(1)
	if err := simulate(ctx, t.delay); err != nil {
		return nil, err
	}
	if err := t.plan.next(domain.ServiceTTS, "speech synthesis failed"); err != nil {
		return nil, err
	}
	return []byte("<simulated_audio_data>"), nil
}

// Calls returns how many times the service was invoked.
func (t *TTS) Calls() int64 {
	return t.calls.Load()
}

func simulate(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
