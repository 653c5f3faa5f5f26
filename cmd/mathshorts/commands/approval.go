package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jihopark/mathshorts/internal/approval"
	"github.com/jihopark/mathshorts/internal/config"
)

func NewApprovalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approval",
		Short: "Manage pending content approvals",
	}

	cmd.AddCommand(
		newApprovalListCmd(),
		newApprovalShowCmd(),
		newApprovalApproveCmd(),
		newApprovalRejectCmd(),
	)

	return cmd
}

func newApprovalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending approval tickets",
		RunE:  runApprovalList,
	}
}

func newApprovalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one ticket with its full problem",
		Args:  cobra.ExactArgs(1),
		RunE:  runApprovalShow,
	}
}

func newApprovalApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending ticket",
		Args:  cobra.ExactArgs(1),
		RunE:  runApprovalApprove,
	}
	cmd.Flags().String("by", "", "Decision maker")
	cmd.Flags().String("feedback", "", "Decision feedback")
	return cmd
}

func newApprovalRejectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending ticket",
		Args:  cobra.ExactArgs(1),
		RunE:  runApprovalReject,
	}
	cmd.Flags().String("by", "", "Decision maker")
	cmd.Flags().String("feedback", "", "Decision feedback")
	return cmd
}

func runApprovalList(cmd *cobra.Command, args []string) error {
	gate, err := loadGate()
	if err != nil {
		return err
	}

	pending, err := gate.ListPending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No pending approvals.")
		return nil
	}

	for _, ticket := range pending {
		fmt.Printf("%-4s %-10s %-12s deadline %s\n",
			ticket.ID,
			ticket.Bundle.TimeSlot,
			ticket.Bundle.Request.Topic,
			ticket.Deadline.Local().Format("15:04"),
		)
	}
	return nil
}

func runApprovalShow(cmd *cobra.Command, args []string) error {
	gate, err := loadGate()
	if err != nil {
		return err
	}

	ticket, err := gate.Get(args[0])
	if err != nil {
		return err
	}

	bundle := ticket.Bundle
	fmt.Printf("Ticket:   %s (%s)\n", ticket.ID, ticket.Status)
	fmt.Printf("Slot:     %s\n", bundle.TimeSlot)
	fmt.Printf("Topic:    %s (grade %d)\n", bundle.Request.Topic, bundle.Request.Grade)
	fmt.Printf("Deadline: %s\n", ticket.Deadline.Local().Format("2006-01-02 15:04"))
	fmt.Printf("\n%s\n\n%s\n", bundle.Problem.StatementText, bundle.Problem.EquationText)
	for i, step := range bundle.Problem.SolutionSteps {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
	fmt.Printf("\nAnswer: %s\n", bundle.Problem.FinalAnswer)

	fmt.Println("\nNarrations:")
	for _, n := range bundle.Narrations {
		state := "ok"
		if !n.Succeeded {
			state = "failed: " + n.ErrorDetail
		}
		fmt.Printf("  %-3s %s\n", n.LanguageTag, state)
	}
	return nil
}

func runApprovalApprove(cmd *cobra.Command, args []string) error {
	return runApprovalDecision(cmd, args[0], approval.DecisionApprove)
}

func runApprovalReject(cmd *cobra.Command, args []string) error {
	return runApprovalDecision(cmd, args[0], approval.DecisionReject)
}

func runApprovalDecision(cmd *cobra.Command, id string, decision approval.Decision) error {
	by, _ := cmd.Flags().GetString("by")
	feedback, _ := cmd.Flags().GetString("feedback")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	workspace, err := cfg.WorkspacePath()
	if err != nil {
		return fmt.Errorf("invalid workspace: %w", err)
	}

	// Resolving from the CLI also completes the publish phase, so the ticket
	// is not left approved-but-unpublished when no daemon is watching.
	_, gate, _ := buildWorkflow(cmd.Context(), cfg, workspace)

	ticket, err := gate.Resolve(id, decision, strings.TrimSpace(by), strings.TrimSpace(feedback))
	if err != nil {
		return err
	}

	fmt.Printf("Ticket %s %s.\n", ticket.ID, ticket.Status)
	return nil
}

func loadGate() (*approval.Gate, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	workspace, err := cfg.WorkspacePath()
	if err != nil {
		return nil, fmt.Errorf("invalid workspace: %w", err)
	}
	return approval.NewGate(workspace, time.Duration(cfg.Workflow.ApprovalWindowMin)*time.Minute), nil
}
