package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/callguard/internal/agent"
	"github.com/vietddude/callguard/internal/core/domain"
	"github.com/vietddude/callguard/internal/resilience"
	"github.com/vietddude/callguard/internal/services"
	"github.com/vietddude/callguard/internal/sink"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run scripted call scenarios against the mock services",
	Run:   runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// Demo scenarios run with millisecond backoff so the whole run finishes
// quickly.
var demoRetry = resilience.RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    200 * time.Millisecond,
	BackoffMultiple: 2,
}

func runDemo(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	initLogger(cfg)

	scenarios := []struct {
		name string
		stt  *services.STT
		llm  *services.LLM
		tts  *services.TTS
	}{
		{
			name: "healthy call",
			stt:  services.NewScriptedSTT(),
			llm:  services.NewScriptedLLM(),
			tts:  services.NewScriptedTTS(),
		},
		{
			name: "flaky STT recovers on third attempt",
			stt:  services.NewScriptedSTT(domain.CodeTimeout, domain.CodeNetwork, services.CodeNone),
			llm:  services.NewScriptedLLM(),
			tts:  services.NewScriptedTTS(),
		},
		{
			name: "LLM rejects credentials (no retry)",
			stt:  services.NewScriptedSTT(),
			llm:  services.NewScriptedLLM(domain.CodeAuthentication),
			tts:  services.NewScriptedTTS(),
		},
		{
			name: "TTS down, retries exhausted",
			stt:  services.NewScriptedSTT(),
			llm:  services.NewScriptedLLM(),
			tts: services.NewScriptedTTS(
				domain.CodeServiceUnavailable,
				domain.CodeServiceUnavailable,
				domain.CodeServiceUnavailable),
		},
	}

	ctx := context.Background()
	for i, sc := range scenarios {
		fmt.Printf("\n=== Scenario %d: %s ===\n", i+1, sc.name)
		a := agent.New(agent.Config{
			Retry:                demoRetry,
			Breaker:              cfg.Resilience.Breaker(),
			CriticalOpenServices: cfg.Alerting.CriticalOpenServices,
		}, sc.stt, sc.llm, sc.tts, sink.NewLogSink())

		audio, err := a.ProcessCall(ctx, []byte("simulated caller audio"))
		if err != nil {
			fmt.Printf("call failed: %v\n", err)
			continue
		}
		fmt.Printf("call succeeded, %d audio bytes\n", len(audio))
	}

	fmt.Println("\n=== Scenario 5: breaker trips and recovers ===")
	runBreakerDemo(ctx, cfg.Alerting.CriticalOpenServices)
}

// runBreakerDemo drives one service to failure until its breaker opens,
// then demonstrates the half-open probe closing it again.
func runBreakerDemo(ctx context.Context, criticalOpen int) {
	stt := services.NewScriptedSTT(
		domain.CodeAuthentication,
		domain.CodeAuthentication,
		domain.CodeAuthentication,
		// After the open window the probe succeeds.
		services.CodeNone,
	)
	a := agent.New(agent.Config{
		Retry:                demoRetry,
		Breaker:              resilience.BreakerConfig{FailureThreshold: 3, OpenTimeout: time.Second},
		CriticalOpenServices: criticalOpen,
	}, stt, services.NewScriptedLLM(), services.NewScriptedTTS(), sink.NewLogSink())

	for i := 0; i < 3; i++ {
		_, _ = a.ProcessCall(ctx, []byte("audio"))
	}
	if _, err := a.ProcessCall(ctx, []byte("audio")); err != nil {
		fmt.Printf("call rejected while breaker open: %v\n", err)
	}

	slog.Info("Waiting for the open window to elapse...")
	time.Sleep(1100 * time.Millisecond)

	if _, err := a.ProcessCall(ctx, []byte("audio")); err != nil {
		fmt.Printf("probe call failed: %v\n", err)
	} else {
		fmt.Println("probe call succeeded, breaker closed again")
	}
}
