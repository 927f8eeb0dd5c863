package anthropic

import (
	"context"

	einoClaude "github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/helper"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/spi"
)

const Name = "anthropic"

const defaultMaxTokens = 4096

var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

func (p *Plugin) BuildChatModel(ctx context.Context, cfg *options.ProviderConfig) (model.BaseChatModel, error) {
	if err := p.RequireAPIKey(cfg); err != nil {
		return nil, err
	}

	conf := &einoClaude.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   defaultMaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}
	if cfg.MaxTokens > 0 {
		conf.MaxTokens = cfg.MaxTokens
	}
	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		conf.BaseURL = &baseURL
	}

	return einoClaude.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		APIKey: "${ANTHROPIC_API_KEY}",
		Model:  "claude-sonnet-4-5",
	}
}
