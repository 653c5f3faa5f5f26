package commands

import (
	"github.com/spf13/cobra"

	"github.com/jihopark/mathshorts/internal/config"
)

var logLevelOverride string

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mathshorts",
		Short: "Math Shorts - Daily math video workflow",
		Long:  `Math Shorts generates daily math problems, narrates them in multiple languages, and publishes approved content on a schedule.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "init" {
				return configureLogger(config.DefaultConfig(), logLevelOverride)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return configureLogger(cfg, logLevelOverride)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")

	cmd.AddCommand(
		NewInitCmd(),
		NewRunCmd(),
		NewSlotCmd(),
		NewApprovalCmd(),
		NewStatusCmd(),
		NewVersionCmd(),
	)

	return cmd
}
