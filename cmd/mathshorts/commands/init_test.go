package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jihopark/mathshorts/internal/config"
)

func TestInitCommand_CreatesConfigAndWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit error: %v", err)
	}

	configPath := config.ConfigPath()
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("expected config file at %s: %v", configPath, err)
	}

	cfg := config.DefaultConfig()
	workspace := cfg.Workflow.Workspace
	if _, err := os.Stat(workspace); err != nil {
		t.Fatalf("expected workspace dir at %s: %v", workspace, err)
	}
	if _, err := os.Stat(filepath.Join(workspace, "state")); err != nil {
		t.Fatalf("expected state dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workspace, "audio")); err != nil {
		t.Fatalf("expected audio dir: %v", err)
	}
}

func TestInitCommand_IdempotentWhenConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("first runInit: %v", err)
	}
	out := captureOutput(t, func() {
		if err := runInit(nil, nil); err != nil {
			t.Errorf("second runInit: %v", err)
		}
	})
	if out == "" {
		t.Fatal("expected already-exists message")
	}
}
