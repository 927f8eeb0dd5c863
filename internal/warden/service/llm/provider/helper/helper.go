package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
)

type BasePlugin struct {
	PluginName string
}

func (b *BasePlugin) Name() string {
	return b.PluginName
}

// DefaultConfig returns the default configuration for the provider.
func (b *BasePlugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{}
}

// NormalizeOptions keeps tool blocks and pairs them, which is what every
// tool calling API expects.
func (b *BasePlugin) NormalizeOptions() runtime.NormalizeOptions {
	return runtime.NormalizeOptions{
		KeepToolBlocks: true,
		PairToolBlocks: true,
	}
}

// RequireModel fails when the resolved config names no model.
func (b *BasePlugin) RequireModel(cfg *options.ProviderConfig) error {
	if cfg.Model == "" {
		return fmt.Errorf("provider %s: model is required", b.PluginName)
	}
	return nil
}

// RequireAPIKey fails when the resolved config has no API key.
func (b *BasePlugin) RequireAPIKey(cfg *options.ProviderConfig) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("provider %s: api-key is required", b.PluginName)
	}
	return nil
}

// ResolveEnvValue resolves "${ENV_VAR}" references in a string.
func ResolveEnvValue(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envKey := s[2 : len(s)-1]
		return os.Getenv(envKey)
	}
	return s
}

// ResolveConfig overlays cfg on the plugin defaults and expands environment
// references in credentials.
func ResolveConfig(cfg, defaults *options.ProviderConfig) *options.ProviderConfig {
	out := cfg.Merge(defaults)
	out.APIKey = ResolveEnvValue(out.APIKey)
	out.AccessKeyID = ResolveEnvValue(out.AccessKeyID)
	out.SecretAccessKey = ResolveEnvValue(out.SecretAccessKey)
	out.SessionToken = ResolveEnvValue(out.SessionToken)
	return out
}
