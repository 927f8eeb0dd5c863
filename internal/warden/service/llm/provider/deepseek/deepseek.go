package deepseek

import (
	"context"

	einoDeepseek "github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/helper"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/spi"
)

const Name = "deepseek"

var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

// BuildChatModel uses the dedicated DeepSeek SDK so reasoning content of
// deepseek-reasoner is surfaced.
func (p *Plugin) BuildChatModel(ctx context.Context, cfg *options.ProviderConfig) (model.BaseChatModel, error) {
	if err := p.RequireAPIKey(cfg); err != nil {
		return nil, err
	}

	temperature := float32(0.7)
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	conf := &einoDeepseek.ChatModelConfig{
		APIKey:             cfg.APIKey,
		Model:              cfg.Model,
		Temperature:        temperature,
		MaxTokens:          cfg.MaxTokens,
		ResponseFormatType: einoDeepseek.ResponseFormatTypeText,
	}
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}

	return einoDeepseek.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "https://api.deepseek.com/v1",
		APIKey:  "${DEEPSEEK_API_KEY}",
		Model:   "deepseek-chat",
	}
}
