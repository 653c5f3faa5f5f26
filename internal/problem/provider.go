package problem

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/jihopark/mathshorts/internal/config"
)

// NewChatModel creates a ChatModel based on configuration
func NewChatModel(ctx context.Context, cfg *config.Config) (model.ChatModel, error) {
	p := cfg.Providers
	d := p.Defaults

	switch {
	case p.Claude.APIKey != "":
		return newClaudeModel(ctx, p.Claude, d)
	case p.OpenAI.APIKey != "":
		return newOpenAIModel(ctx, p.OpenAI, d)
	case p.Ollama.BaseURL != "":
		return newOllamaModel(ctx, p.Ollama, d)
	default:
		return nil, fmt.Errorf("no provider configured: set api_key for at least one provider")
	}
}

func newClaudeModel(ctx context.Context, p config.ProviderConfig, d config.ModelDefaults) (model.ChatModel, error) {
	m := p.Model
	if m == "" {
		m = "claude-3-sonnet-20240229"
	}
	return claude.NewChatModel(ctx, &claude.Config{
		APIKey:      p.APIKey,
		Model:       m,
		MaxTokens:   d.MaxTokens,
		Temperature: toFloat32Ptr(d.Temperature),
	})
}

func newOpenAIModel(ctx context.Context, p config.ProviderConfig, d config.ModelDefaults) (model.ChatModel, error) {
	cfg := &openai.ChatModelConfig{
		Model:       p.Model,
		APIKey:      p.APIKey,
		Temperature: toFloat32Ptr(d.Temperature),
		MaxTokens:   toIntPtr(d.MaxTokens),
	}
	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
	}
	return openai.NewChatModel(ctx, cfg)
}

func newOllamaModel(ctx context.Context, p config.ProviderConfig, d config.ModelDefaults) (model.ChatModel, error) {
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   p.Model,
	})
}

func toFloat32Ptr(f float64) *float32 {
	v := float32(f)
	return &v
}

func toIntPtr(i int) *int {
	return &i
}
