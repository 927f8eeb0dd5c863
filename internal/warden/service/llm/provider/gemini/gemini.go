package gemini

import (
	"context"
	"fmt"

	einoGemini "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/helper"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/spi"
	"google.golang.org/genai"
)

const Name = "gemini"

// Compile-time check: Plugin implements ChatModelPlugin.
var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

// BuildChatModel uses Google's generative AI API rather than the
// OpenAI-compatible endpoint.
func (p *Plugin) BuildChatModel(ctx context.Context, cfg *options.ProviderConfig) (model.BaseChatModel, error) {
	if err := p.RequireAPIKey(cfg); err != nil {
		return nil, err
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client for %s: %w", cfg.Model, err)
	}

	conf := &einoGemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		conf.MaxTokens = &maxTokens
	}
	if cfg.Reasoning {
		conf.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
		}
	}

	return einoGemini.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		APIKey: "${GOOGLE_API_KEY}",
		Model:  "gemini-2.5-flash",
	}
}
