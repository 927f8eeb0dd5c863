package llm

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/internal/warden/service/llm/adapter"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/helper"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/spi"
	"github.com/kiosk404/warden/pkg/logger"
)

// Config holds the configuration for the LLM module.
type Config struct {
	ModelOptions *options.ModelOptions

	// OutOfTreeRegistry allows registering additional provider plugins
	// beyond the built-in ones. If nil, only in-tree providers are available.
	OutOfTreeRegistry *provider.Registry
}

// CompletedConfig is the validated and completed configuration.
type CompletedConfig struct {
	*Config
}

// Complete validates and fills defaults.
func (c *Config) Complete() CompletedConfig {
	if c.ModelOptions == nil {
		c.ModelOptions = options.NewModelOptions()
	}
	if c.ModelOptions.Providers == nil {
		c.ModelOptions.Providers = make(map[string]*options.ProviderConfig)
	}
	return CompletedConfig{c}
}

// Module builds and caches one runtime adapter per configured provider.
type Module struct {
	Registry *provider.Registry

	opts     *options.ModelOptions
	mu       sync.Mutex
	adapters map[string]runtime.Adapter
}

// New creates the LLM module and eagerly builds the default adapter so
// configuration errors surface at startup.
func (c CompletedConfig) New(ctx context.Context) (*Module, error) {
	logger.Info("[LLM] creating LLM module...")

	registry := provider.NewInTreeRegistry()
	if c.OutOfTreeRegistry != nil {
		if err := registry.Merge(c.OutOfTreeRegistry); err != nil {
			return nil, fmt.Errorf("failed to merge out-of-tree providers: %w", err)
		}
	}
	logger.Info("[LLM] provider registry initialized with %d plugins", registry.Len())

	m := &Module{
		Registry: registry,
		opts:     c.ModelOptions,
		adapters: make(map[string]runtime.Adapter),
	}
	if _, err := m.DefaultAdapter(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Default returns the default provider ID.
func (m *Module) Default() string { return m.opts.Default }

// DefaultAdapter returns the adapter of the default provider.
func (m *Module) DefaultAdapter(ctx context.Context) (runtime.Adapter, error) {
	return m.Adapter(ctx, m.opts.Default)
}

// Adapter returns the cached adapter for the provider ID, building it on
// first use. An ID with no configuration entry uses the plugin of the same
// name with its defaults.
func (m *Module) Adapter(ctx context.Context, id string) (runtime.Adapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.adapters[id]; ok {
		return a, nil
	}
	a, err := m.build(ctx, id)
	if err != nil {
		return nil, err
	}
	m.adapters[id] = a
	logger.Info("[LLM] runtime adapter %q ready (%s)", id, a.Name())
	return a, nil
}

// Providers returns the configured provider IDs plus every registered plugin.
func (m *Module) Providers() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, name := range m.Registry.List() {
		seen[name] = struct{}{}
		ids = append(ids, name)
	}
	for _, id := range slices.Sorted(maps.Keys(m.opts.Providers)) {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *Module) build(ctx context.Context, id string) (runtime.Adapter, error) {
	if id == "" {
		return nil, fmt.Errorf("no provider selected")
	}
	cfg := m.opts.Providers[id]
	pluginName := id
	if cfg != nil {
		pluginName = cfg.PluginName(id)
	}

	plugin, err := m.Registry.New(pluginName)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", id, err)
	}
	resolved := helper.ResolveConfig(cfg, plugin.DefaultConfig())

	norm := plugin.NormalizeOptions()
	if resolved.KeepToolBlocks != nil {
		norm.KeepToolBlocks = *resolved.KeepToolBlocks
		norm.PairToolBlocks = *resolved.KeepToolBlocks
	}

	switch p := plugin.(type) {
	case spi.AdapterPlugin:
		a, err := p.BuildAdapter(ctx, resolved, norm)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", id, err)
		}
		return a, nil
	case spi.ChatModelPlugin:
		cm, err := p.BuildChatModel(ctx, resolved)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", id, err)
		}
		return adapter.NewChatModelAdapter(id, resolved.Model, cm, norm), nil
	default:
		return nil, fmt.Errorf("provider %q: plugin %s cannot build a runtime", id, plugin.Name())
	}
}
