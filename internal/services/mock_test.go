package services

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/callguard/internal/core/domain"
)

func TestScriptedFaultsInOrder(t *testing.T) {
	stt := NewScriptedSTT(domain.CodeTimeout, domain.CodeNetwork, CodeNone)
	ctx := context.Background()

	wantCodes := []domain.FailureCode{domain.CodeTimeout, domain.CodeNetwork}
	for i, want := range wantCodes {
		_, err := stt.Transcribe(ctx, []byte("audio"))
		var se *domain.ServiceError
		if !errors.As(err, &se) {
			t.Fatalf("call %d: err = %v, want ServiceError", i+1, err)
		}
		if se.Code != want {
			t.Errorf("call %d: code = %v, want %v", i+1, se.Code, want)
		}
		if se.Service != domain.ServiceSTT {
			t.Errorf("call %d: service = %q, want STT", i+1, se.Service)
		}
	}

	text, err := stt.Transcribe(ctx, []byte("audio"))
	if err != nil {
		t.Fatalf("scripted success returned error: %v", err)
	}
	if text == "" {
		t.Error("scripted success returned empty transcript")
	}
	if stt.Calls() != 3 {
		t.Errorf("call count = %d, want 3", stt.Calls())
	}
}

func TestScriptExhaustedMeansSuccess(t *testing.T) {
	llm := NewScriptedLLM(domain.CodeServiceUnavailable)
	ctx := context.Background()

	if _, err := llm.Generate(ctx, "hi"); err == nil {
		t.Fatal("first call should fail")
	}
	for i := 0; i < 3; i++ {
		if _, err := llm.Generate(ctx, "hi"); err != nil {
			t.Fatalf("post-script call %d failed: %v", i+1, err)
		}
	}
}

func TestZeroFailureRateAlwaysSucceeds(t *testing.T) {
	tts := NewTTS(0)
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		if _, err := tts.Synthesize(ctx, "hello"); err != nil {
			t.Fatalf("call %d failed with zero failure rate: %v", i+1, err)
		}
	}
}

func TestFullFailureRateAlwaysFails(t *testing.T) {
	stt := NewSTT(1)
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		if _, err := stt.Transcribe(ctx, []byte("audio")); err == nil {
			t.Fatalf("call %d succeeded with failure rate 1", i+1)
		}
	}
}
