package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jihopark/mathshorts/internal/config"
)

func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize Math Shorts configuration",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := config.ConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists: %s\n", configPath)
		return nil
	}

	cfg := config.DefaultConfig()
	workspace := cfg.Workflow.Workspace

	dirs := []string{
		config.ConfigDir(),
		workspace,
		filepath.Join(workspace, "state"),
		filepath.Join(workspace, "audio"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Math Shorts initialized!\n")
	fmt.Printf("Config: %s\n", configPath)
	fmt.Printf("Workspace: %s\n", workspace)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("1. Edit %s to add your API keys and TTS credentials\n", configPath)
	fmt.Printf("2. Run 'mathshorts run' to start the scheduler\n")
	fmt.Printf("3. Run 'mathshorts slot run morning' to trigger a run manually\n")

	return nil
}
