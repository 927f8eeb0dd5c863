package kimi

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/helper"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/spi"
)

const Name = "kimi"

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
	return helper.NewOpenAICompatibleChatModel(ctx, cfg)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "https://api.moonshot.cn/v1",
		APIKey:  "${MOONSHOT_API_KEY}",
		Model:   "kimi-k2-0905-preview",
	}
}
