package ollama

import (
	"context"

	"github.com/bytedance/gg/gptr"
	einoOllama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/helper"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/spi"
)

const Name = "ollama"

var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

// BuildChatModel talks to a local Ollama daemon; no API key is needed.
func (p *Plugin) BuildChatModel(ctx context.Context, cfg *options.ProviderConfig) (model.BaseChatModel, error) {
	if err := p.RequireModel(cfg); err != nil {
		return nil, err
	}

	conf := &einoOllama.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Options: &einoOllama.Options{},
	}
	if cfg.Temperature != nil {
		conf.Options.Temperature = *cfg.Temperature
	}
	if cfg.TopP != nil {
		conf.Options.TopP = *cfg.TopP
	}
	if cfg.Reasoning {
		conf.Thinking = &einoOllama.ThinkValue{
			Value: gptr.Of(true),
		}
	}

	return einoOllama.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "http://127.0.0.1:11434",
		Model:   "llama3.1",
	}
}
