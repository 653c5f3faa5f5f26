package config

import (
	"testing"
	"time"

	"github.com/adhocore/gronx"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Workflow.ApprovalWindowMin != 120 {
		t.Errorf("expected ApprovalWindowMin=120, got %d", cfg.Workflow.ApprovalWindowMin)
	}
	if cfg.Workflow.GenerateAttempts != 3 {
		t.Errorf("expected GenerateAttempts=3, got %d", cfg.Workflow.GenerateAttempts)
	}
	if cfg.Workflow.RetryBackoffSec != 3 {
		t.Errorf("expected RetryBackoffSec=3, got %d", cfg.Workflow.RetryBackoffSec)
	}
	if cfg.Gateway.Port != 18820 {
		t.Errorf("expected Port=18820, got %d", cfg.Gateway.Port)
	}
	if len(cfg.Workflow.Languages) != 5 {
		t.Errorf("expected 5 languages, got %v", cfg.Workflow.Languages)
	}
	if len(cfg.Slots) != 4 {
		t.Fatalf("expected 4 default slots, got %d", len(cfg.Slots))
	}
	for _, lang := range cfg.Workflow.Languages {
		if _, ok := cfg.TTS.Voices[lang]; !ok {
			t.Errorf("no voice configured for default language %q", lang)
		}
	}
}

func TestDefaultSlotCronExpressions(t *testing.T) {
	cfg := DefaultConfig()
	parser := gronx.New()

	for _, slot := range cfg.Slots {
		if !parser.IsValid(slot.Cron) {
			t.Errorf("slot %s: invalid cron %q", slot.Name, slot.Cron)
		}
	}

	// Weekday slots fire Monday through Friday, not on weekends.
	morning, _ := cfg.Slot("morning")
	monday := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 3, 7, 6, 0, 0, 0, time.UTC)
	if due, _ := gronx.New().IsDue(morning.Cron, monday); !due {
		t.Error("morning slot should be due Monday 06:00")
	}
	if due, _ := gronx.New().IsDue(morning.Cron, saturday); due {
		t.Error("morning slot must not be due Saturday")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	cfg := DefaultConfig()
	cfg.Workflow.Languages = []string{"ko", "en"}
	cfg.Gateway.Token = "secret"
	cfg.Notify.Telegram.Enabled = true
	cfg.Notify.Telegram.ChatID = 42

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Workflow.Languages) != 2 {
		t.Fatalf("languages not round-tripped: %v", loaded.Workflow.Languages)
	}
	if loaded.Gateway.Token != "secret" {
		t.Fatalf("token not round-tripped: %q", loaded.Gateway.Token)
	}
	if !loaded.Notify.Telegram.Enabled || loaded.Notify.Telegram.ChatID != 42 {
		t.Fatalf("telegram config not round-tripped: %+v", loaded.Notify.Telegram)
	}
}

func TestLoad_CreatesDefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workflow.ApprovalWindowMin != 120 {
		t.Fatalf("expected default config, got %+v", cfg.Workflow)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"empty languages", func(c *Config) { c.Workflow.Languages = nil }, true},
		{"zero approval window", func(c *Config) { c.Workflow.ApprovalWindowMin = 0 }, true},
		{"zero attempts", func(c *Config) { c.Workflow.GenerateAttempts = 0 }, true},
		{"empty slot name", func(c *Config) { c.Slots[0].Name = "" }, true},
		{"duplicate slot name", func(c *Config) { c.Slots[1].Name = c.Slots[0].Name }, true},
		{"grade out of range", func(c *Config) { c.Slots[0].Grade = 4 }, true},
		{"missing cron", func(c *Config) { c.Slots[0].Cron = "" }, true},
		{"topic outside grade catalog", func(c *Config) { c.Slots[0].Topic = "이차방정식" }, true},
		{"grade 2 topic on grade 2 slot", func(c *Config) { c.Slots[0].Grade = 2; c.Slots[0].Topic = "이차함수" }, false},
		{"unknown region", func(c *Config) { c.Slots[0].Region = "antarctica" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSlotLookup(t *testing.T) {
	cfg := DefaultConfig()

	slot, ok := cfg.Slot("weekly")
	if !ok {
		t.Fatal("weekly slot not found")
	}
	if slot.Topic != "연립방정식" {
		t.Fatalf("unexpected weekly topic: %s", slot.Topic)
	}

	if _, ok := cfg.Slot("nope"); ok {
		t.Fatal("unknown slot must not resolve")
	}
}
