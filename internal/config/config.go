package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/jihopark/mathshorts/internal/content"
)

// Config root configuration
type Config struct {
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Slots     []SlotConfig    `mapstructure:"slots"`
	Providers ProvidersConfig `mapstructure:"providers"`
	TTS       TTSConfig       `mapstructure:"tts"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Log       LogConfig       `mapstructure:"log"`
}

// WorkflowConfig run pipeline settings
type WorkflowConfig struct {
	Workspace           string   `mapstructure:"workspace"`
	Languages           []string `mapstructure:"languages"`
	ApprovalWindowMin   int      `mapstructure:"approval_window_min"`
	SweepIntervalSec    int      `mapstructure:"sweep_interval_sec"`
	GenerateAttempts    int      `mapstructure:"generate_attempts"`
	RetryBackoffSec     int      `mapstructure:"retry_backoff_sec"`
	GenerateTimeoutSec  int      `mapstructure:"generate_timeout_sec"`
	NarrationTimeoutSec int      `mapstructure:"narration_timeout_sec"`
	PublishTimeoutSec   int      `mapstructure:"publish_timeout_sec"`
}

// SlotConfig one recurring scheduled trigger point
type SlotConfig struct {
	Name    string `mapstructure:"name"`
	Cron    string `mapstructure:"cron"`
	Grade   int    `mapstructure:"grade"`
	Topic   string `mapstructure:"topic"`
	Region  string `mapstructure:"region"`
	Enabled bool   `mapstructure:"enabled"`
}

// ProvidersConfig LLM provider settings
type ProvidersConfig struct {
	Claude   ProviderConfig `mapstructure:"claude"`
	OpenAI   ProviderConfig `mapstructure:"openai"`
	Ollama   ProviderConfig `mapstructure:"ollama"`
	Defaults ModelDefaults  `mapstructure:"defaults"`
}

// ProviderConfig single provider settings
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// ModelDefaults default generation parameters
type ModelDefaults struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// TTSConfig text-to-speech settings
type TTSConfig struct {
	CredentialsFile string                 `mapstructure:"credentials_file"`
	OutputDir       string                 `mapstructure:"output_dir"`
	SpeakingRate    float64                `mapstructure:"speaking_rate"`
	VolumeGainDb    float64                `mapstructure:"volume_gain_db"`
	Voices          map[string]VoiceConfig `mapstructure:"voices"`
}

// VoiceConfig per-language voice selection
type VoiceConfig struct {
	LanguageCode string `mapstructure:"language_code"`
	VoiceName    string `mapstructure:"voice_name"`
}

// NotifyConfig approval notification settings
type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig telegram bot settings
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  int64  `mapstructure:"chat_id"`
}

// PublishConfig video publishing settings
type PublishConfig struct {
	YouTube YouTubeConfig `mapstructure:"youtube"`
}

// YouTubeConfig youtube upload settings
type YouTubeConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CredentialsFile string `mapstructure:"credentials_file"`
	PrivacyStatus   string `mapstructure:"privacy_status"`
	CategoryID      string `mapstructure:"category_id"`
}

// GatewayConfig approval endpoint server settings
type GatewayConfig struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Token string `mapstructure:"token"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultLanguages is the narration fan-out set used when none is configured.
var DefaultLanguages = []string{"ko", "en", "zh", "ja", "es"}

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &Config{
		Workflow: WorkflowConfig{
			Workspace:           filepath.Join(homeDir, ".mathshorts", "workspace"),
			Languages:           append([]string{}, DefaultLanguages...),
			ApprovalWindowMin:   120,
			SweepIntervalSec:    180,
			GenerateAttempts:    3,
			RetryBackoffSec:     3,
			GenerateTimeoutSec:  30,
			NarrationTimeoutSec: 30,
			PublishTimeoutSec:   60,
		},
		Slots: []SlotConfig{
			{Name: "morning", Cron: "0 6 * * 1-5", Grade: 1, Topic: "일차방정식", Region: "asia", Enabled: true},
			{Name: "lunch", Cron: "0 12 * * 1-5", Grade: 1, Topic: "일차방정식", Region: "asia", Enabled: true},
			{Name: "weekly", Cron: "0 12 * * 5", Grade: 1, Topic: "연립방정식", Region: "asia", Enabled: true},
			{Name: "weekend", Cron: "0 9 * * 6", Grade: 1, Topic: "부등식", Region: "asia", Enabled: true},
		},
		Providers: ProvidersConfig{
			Defaults: ModelDefaults{
				MaxTokens:   1500,
				Temperature: 0.7,
			},
		},
		TTS: TTSConfig{
			OutputDir:    filepath.Join(homeDir, ".mathshorts", "workspace", "audio"),
			SpeakingRate: 0.9,
			VolumeGainDb: 2.0,
			Voices: map[string]VoiceConfig{
				"ko": {LanguageCode: "ko-KR", VoiceName: "ko-KR-Wavenet-A"},
				"en": {LanguageCode: "en-US", VoiceName: "en-US-Wavenet-F"},
				"zh": {LanguageCode: "cmn-CN", VoiceName: "cmn-CN-Wavenet-A"},
				"ja": {LanguageCode: "ja-JP", VoiceName: "ja-JP-Wavenet-A"},
				"es": {LanguageCode: "es-ES", VoiceName: "es-ES-Wavenet-C"},
			},
		},
		Notify: NotifyConfig{
			Telegram: TelegramConfig{Enabled: false},
		},
		Publish: PublishConfig{
			YouTube: YouTubeConfig{
				Enabled:       false,
				PrivacyStatus: "public",
				CategoryID:    "27",
			},
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 18820,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the mathshorts config directory
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".mathshorts")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads config from file or returns defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(cfg); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("MATHSHORTS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Save saves config to file
func Save(cfg *Config) error {
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Validate checks config invariants that would otherwise surface mid-run.
func (c *Config) Validate() error {
	if len(c.Workflow.Languages) == 0 {
		return fmt.Errorf("workflow.languages must not be empty")
	}
	if c.Workflow.ApprovalWindowMin <= 0 {
		return fmt.Errorf("workflow.approval_window_min must be positive")
	}
	if c.Workflow.GenerateAttempts <= 0 {
		return fmt.Errorf("workflow.generate_attempts must be positive")
	}
	seen := make(map[string]bool, len(c.Slots))
	for _, slot := range c.Slots {
		name := strings.TrimSpace(slot.Name)
		if name == "" {
			return fmt.Errorf("slot name must not be empty")
		}
		if seen[name] {
			return fmt.Errorf("duplicate slot name: %s", name)
		}
		seen[name] = true
		if slot.Grade < 1 || slot.Grade > 3 {
			return fmt.Errorf("slot %s: grade must be 1..3, got %d", name, slot.Grade)
		}
		if strings.TrimSpace(slot.Cron) == "" {
			return fmt.Errorf("slot %s: cron expression is required", name)
		}
		if !content.KnownTopic(slot.Grade, slot.Topic) {
			return fmt.Errorf("slot %s: topic %q is not in the grade %d catalog %v",
				name, slot.Topic, slot.Grade, content.Topics(slot.Grade))
		}
		if slot.Region != "" && !content.KnownRegion(slot.Region) {
			return fmt.Errorf("slot %s: unknown region %q", name, slot.Region)
		}
	}
	return nil
}

// WorkspacePath returns the workspace directory, creating it if needed.
func (c *Config) WorkspacePath() (string, error) {
	path := c.Workflow.Workspace
	if strings.TrimSpace(path) == "" {
		path = filepath.Join(ConfigDir(), "workspace")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}
	return path, nil
}

// Slot returns the slot config with the given name.
func (c *Config) Slot(name string) (SlotConfig, bool) {
	for _, slot := range c.Slots {
		if slot.Name == name {
			return slot, true
		}
	}
	return SlotConfig{}, false
}
