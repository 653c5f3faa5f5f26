package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jihopark/mathshorts/internal/approval"
	"github.com/jihopark/mathshorts/internal/config"
	"github.com/jihopark/mathshorts/internal/history"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show Math Shorts configuration status",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	workspace, err := cfg.WorkspacePath()
	if err != nil {
		return fmt.Errorf("invalid workspace: %w", err)
	}

	fmt.Println("=== Math Shorts Status ===")
	fmt.Println()

	fmt.Printf("Config: %s\n", config.ConfigPath())
	if _, err := os.Stat(config.ConfigPath()); err == nil {
		fmt.Println("  Status: OK")
	} else {
		fmt.Println("  Status: Not found (run 'mathshorts init')")
	}

	fmt.Printf("\nWorkspace: %s\n", workspace)
	if _, err := os.Stat(workspace); err == nil {
		fmt.Println("  Status: OK")
	} else {
		fmt.Println("  Status: Not found")
	}

	fmt.Println("\nProviders:")
	providers := map[string]string{
		"Claude": cfg.Providers.Claude.APIKey,
		"OpenAI": cfg.Providers.OpenAI.APIKey,
		"Ollama": cfg.Providers.Ollama.BaseURL,
	}
	for name, key := range providers {
		status := "Not configured"
		if key != "" {
			status = "Configured"
		}
		fmt.Printf("  %s: %s\n", name, status)
	}

	fmt.Println("\nNarration:")
	ttsStatus := "Not configured"
	if strings.TrimSpace(cfg.TTS.CredentialsFile) != "" {
		ttsStatus = "Configured"
	}
	fmt.Printf("  Google TTS: %s\n", ttsStatus)
	fmt.Printf("  Languages: %s\n", strings.Join(cfg.Workflow.Languages, ", "))
	fmt.Printf("  Voices: %d configured\n", len(cfg.TTS.Voices))

	fmt.Println("\nPublishing:")
	ytStatus := "disabled"
	if cfg.Publish.YouTube.Enabled {
		ytStatus = "enabled"
		if strings.TrimSpace(cfg.Publish.YouTube.CredentialsFile) == "" {
			ytStatus += " (no credentials)"
		}
	}
	fmt.Printf("  YouTube: %s\n", ytStatus)

	fmt.Println("\nNotifications:")
	tgStatus := "disabled"
	if cfg.Notify.Telegram.Enabled {
		tgStatus = "enabled"
		if strings.TrimSpace(cfg.Notify.Telegram.Token) == "" {
			tgStatus += " (no token)"
		}
	}
	fmt.Printf("  Telegram: %s\n", tgStatus)

	fmt.Println("\nSlots:")
	for _, slot := range cfg.Slots {
		state := "enabled"
		if !slot.Enabled {
			state = "disabled"
		}
		fmt.Printf("  %-10s %-14s %s\n", slot.Name, slot.Cron, state)
	}
	fmt.Printf("  Approval window: %dm, sweep every %ds\n", cfg.Workflow.ApprovalWindowMin, cfg.Workflow.SweepIntervalSec)

	fmt.Println("\nGateway:")
	fmt.Printf("  Address: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	if cfg.Gateway.Token != "" {
		fmt.Println("  Auth:    token configured")
	} else {
		fmt.Println("  Auth:    no token (open)")
	}

	fmt.Println("\nApprovals:")
	gate := approval.NewGate(workspace, time.Duration(cfg.Workflow.ApprovalWindowMin)*time.Minute)
	if pending, err := gate.ListPending(); err == nil {
		fmt.Printf("  Pending: %d\n", len(pending))
	} else {
		fmt.Println("  Status: unavailable")
	}

	fmt.Println("\nRuns:")
	runs := history.NewStore(workspace)
	if results, err := runs.List(); err == nil {
		fmt.Printf("  Recorded: %d\n", len(results))
		if len(results) > 0 {
			latest := results[0]
			fmt.Printf("  Latest: %s %s (%s)\n", latest.TimeSlot, latest.OverallStatus, latest.FinishedAt.Local().Format("2006-01-02 15:04"))
		}
	} else {
		fmt.Println("  Status: unavailable")
	}

	return nil
}
