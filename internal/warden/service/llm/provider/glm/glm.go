package glm

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/helper"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/spi"
)

const Name = "glm"

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
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		APIKey:  "${ZHIPU_API_KEY}",
		Model:   "glm-4.6",
	}
}
