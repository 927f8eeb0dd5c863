package spi

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
)

// ProviderPlugin is the interface for provider plugins.
type ProviderPlugin interface {
	// Name returns the name of the provider plugin.
	Name() string
	// DefaultConfig returns the configuration user settings are overlaid on.
	DefaultConfig() *options.ProviderConfig
	// NormalizeOptions returns how conversation history is prepared for the backend.
	NormalizeOptions() runtime.NormalizeOptions
}

// ChatModelPlugin builds an Eino chat model. The LLM module wraps it in the
// generic chat model adapter, so tool binding and message conversion are
// shared by every Eino backed provider.
type ChatModelPlugin interface {
	ProviderPlugin
	// BuildChatModel builds a chat model from a resolved provider config.
	// The model must implement ToolCallingChatModel for tools to be offered.
	BuildChatModel(ctx context.Context, cfg *options.ProviderConfig) (model.BaseChatModel, error)
}

// AdapterPlugin builds a runtime adapter directly, for backends that do not
// go through Eino.
type AdapterPlugin interface {
	ProviderPlugin
	BuildAdapter(ctx context.Context, cfg *options.ProviderConfig, norm runtime.NormalizeOptions) (runtime.Adapter, error)
}

// PluginFactory is a function that creates a ProviderPlugin instance.
type PluginFactory func() ProviderPlugin
