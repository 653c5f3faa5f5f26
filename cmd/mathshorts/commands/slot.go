package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jihopark/mathshorts/internal/config"
)

func NewSlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "Inspect and trigger scheduled slots",
	}

	cmd.AddCommand(
		newSlotListCmd(),
		newSlotRunCmd(),
	)

	return cmd
}

func newSlotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured slots",
		RunE:  runSlotList,
	}
}

func newSlotRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Run one slot immediately and submit it for approval",
		Args:  cobra.ExactArgs(1),
		RunE:  runSlotRun,
	}
}

func runSlotList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(cfg.Slots) == 0 {
		fmt.Println("No slots configured.")
		return nil
	}

	for _, slot := range cfg.Slots {
		state := "enabled"
		if !slot.Enabled {
			state = "disabled"
		}
		fmt.Printf("%-10s %-14s grade %d  %-12s %s\n", slot.Name, slot.Cron, slot.Grade, slot.Topic, state)
	}
	return nil
}

// runSlotRun executes one slot in the foreground: generate, narrate, and
// submit. The daemon (or a later 'approval approve') completes publication.
func runSlotRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	workspace, err := cfg.WorkspacePath()
	if err != nil {
		return fmt.Errorf("invalid workspace: %w", err)
	}

	slot, ok := cfg.Slot(args[0])
	if !ok {
		return fmt.Errorf("unknown slot: %s", args[0])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	runner, _, _ := buildWorkflow(ctx, cfg, workspace)

	ticket, err := runner.RunSlot(ctx, slot)
	if err != nil {
		return err
	}

	fmt.Printf("Slot %s submitted for approval.\n", slot.Name)
	fmt.Printf("Ticket: %s\n", ticket.ID)
	fmt.Printf("Deadline: %s (auto-approve after)\n", ticket.Deadline.Local().Format("2006-01-02 15:04"))
	fmt.Printf("\nApprove: mathshorts approval approve %s\n", ticket.ID)
	fmt.Printf("Reject:  mathshorts approval reject %s\n", ticket.ID)
	return nil
}
