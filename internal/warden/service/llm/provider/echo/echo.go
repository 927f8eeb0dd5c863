package echo

import (
	"context"

	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/helper"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/spi"
)

const Name = "echo"

var _ spi.AdapterPlugin = (*Plugin)(nil)

// Plugin provides an offline runtime that needs no credentials. It is the
// default backend so a fresh server works out of the box.
type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

func (p *Plugin) BuildAdapter(_ context.Context, cfg *options.ProviderConfig, norm runtime.NormalizeOptions) (runtime.Adapter, error) {
	return NewAdapter(cfg.Model, norm), nil
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		Model: "echo-1",
	}
}
