package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jihopark/mathshorts/internal/approval"
	"github.com/jihopark/mathshorts/internal/config"
	"github.com/jihopark/mathshorts/internal/gateway"
	"github.com/jihopark/mathshorts/internal/history"
	"github.com/jihopark/mathshorts/internal/narration"
	"github.com/jihopark/mathshorts/internal/notify"
	"github.com/jihopark/mathshorts/internal/problem"
	"github.com/jihopark/mathshorts/internal/publish"
	"github.com/jihopark/mathshorts/internal/schedule"
	"github.com/jihopark/mathshorts/internal/workflow"
)

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the Math Shorts scheduler daemon",
		RunE:  runServer,
	}

	return cmd
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	workspace, err := cfg.WorkspacePath()
	if err != nil {
		return fmt.Errorf("invalid workspace: %w", err)
	}

	runner, gate, runs := buildWorkflow(ctx, cfg, workspace)

	scheduler, err := schedule.NewService(
		cfg.Slots,
		time.Duration(cfg.Workflow.SweepIntervalSec)*time.Second,
		func(slot config.SlotConfig) error {
			_, err := runner.RunSlot(ctx, slot)
			if errors.Is(err, workflow.ErrAlreadyRunning) {
				slog.Warn("slot skipped, previous run still pending", "slot", slot.Name)
				return nil
			}
			return err
		},
		runner.Sweep,
	)
	if err != nil {
		return fmt.Errorf("invalid slot schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Tickets pending past their deadline across a restart resolve on the
	// first sweep; run it eagerly instead of waiting an interval.
	if err := runner.Sweep(time.Now()); err != nil {
		slog.Warn("startup sweep failed", "error", err)
	}

	gatewayServer := gateway.New(cfg.Gateway, gate, runs, func() map[string]any {
		next := map[string]any{}
		for name, at := range scheduler.NextRuns() {
			next[name] = at.Format(time.RFC3339)
		}
		return map[string]any{
			"scheduler_running": scheduler.Running(),
			"next_runs":         next,
			"in_flight":         runner.InFlight(),
		}
	})

	errCh := make(chan error, 1)
	go func() {
		if err := gatewayServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("gateway server failed: %w", err)
		}
	}()

	fmt.Printf("Math Shorts scheduler running. Gateway: http://%s\nPress Ctrl+C to stop.\n", gatewayServer.Addr())

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		slog.Error("server component failed", "error", runErr)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	slog.Info("shutting down")
	scheduler.Stop()
	if err := gatewayServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("gateway shutdown failed", "error", err)
	}

	return runErr
}

// buildWorkflow assembles the run pipeline: problem source, narration source,
// approval gate with notifiers, publish sink, and the runner tying them
// together. The returned history store is the single instance for the
// process; the runner and any reader must share it.
func buildWorkflow(ctx context.Context, cfg *config.Config, workspace string) (*workflow.Runner, *approval.Gate, *history.Store) {
	chatModel, err := problem.NewChatModel(ctx, cfg)
	if err != nil {
		slog.Warn("no generation model configured, runs will use fallback problems", "error", err)
	}
	problems := problem.NewModelSource(chatModel, time.Duration(cfg.Workflow.GenerateTimeoutSec)*time.Second)

	synth, err := narration.NewGoogleSynthesizer(ctx, cfg.TTS)
	if err != nil {
		slog.Warn("speech synthesizer unavailable, narrations will fail-soft", "error", err)
		synth = nil
	}
	narrations := narration.NewSource(synth, cfg.TTS, time.Duration(cfg.Workflow.NarrationTimeoutSec)*time.Second)

	gate := approval.NewGate(workspace, time.Duration(cfg.Workflow.ApprovalWindowMin)*time.Minute)

	channels := []approval.Notifier{notify.Console{}}
	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram)
		if err != nil {
			slog.Warn("telegram notifier unavailable", "error", err)
		} else {
			channels = append(channels, tg)
		}
	}
	gate.SetNotifier(notify.NewMulti(channels...))

	var sink publish.Sink = publish.Discard{}
	if cfg.Publish.YouTube.Enabled {
		yt, err := publish.NewYouTube(ctx, cfg.Publish.YouTube, time.Duration(cfg.Workflow.PublishTimeoutSec)*time.Second)
		if err != nil {
			slog.Warn("youtube publisher unavailable, uploads will fail-soft", "error", err)
		} else {
			sink = yt
		}
	}

	runs := history.NewStore(workspace)
	runner := workflow.NewRunner(problems, narrations, gate, sink, runs, workflow.SettingsFromConfig(cfg.Workflow))
	runner.SetBaseContext(ctx)
	gate.SetOnResolved(runner.HandleResolution)

	return runner, gate, runs
}
