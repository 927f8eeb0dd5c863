package options

import (
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/spf13/pflag"

	"github.com/kiosk404/warden/pkg/logger"
)

// ModelOptions selects the runtime backend used for every conversation.
type ModelOptions struct {
	// Default is the provider ID (a key of Providers) used by the server.
	Default   string                     `json:"default"   mapstructure:"default"`
	Providers map[string]*ProviderConfig `json:"providers" mapstructure:"providers"`
}

// ProviderConfig configures one runtime backend.
// API keys may reference the environment with the "${VAR}" form.
type ProviderConfig struct {
	// Type is the provider plugin name. Defaults to the map key.
	Type        string   `json:"type"        mapstructure:"type"`
	BaseURL     string   `json:"base-url"    mapstructure:"base-url"`
	APIKey      string   `json:"api-key"     mapstructure:"api-key"`
	Model       string   `json:"model"       mapstructure:"model"`
	MaxTokens   int      `json:"max-tokens"  mapstructure:"max-tokens"`
	Temperature *float32 `json:"temperature" mapstructure:"temperature"`
	TopP        *float32 `json:"top-p"       mapstructure:"top-p"`
	Reasoning   bool     `json:"reasoning"   mapstructure:"reasoning"`

	// OpenAI on Azure.
	ByAzure    bool   `json:"by-azure"    mapstructure:"by-azure"`
	APIVersion string `json:"api-version" mapstructure:"api-version"`

	// AWS Bedrock. Empty credentials fall back to the default AWS chain.
	Region          string `json:"region"            mapstructure:"region"`
	AccessKeyID     string `json:"access-key-id"     mapstructure:"access-key-id"`
	SecretAccessKey string `json:"secret-access-key" mapstructure:"secret-access-key"`
	SessionToken    string `json:"session-token"     mapstructure:"session-token"`

	// KeepToolBlocks overrides whether tool use/result blocks are sent to
	// the backend. Nil keeps the provider default.
	KeepToolBlocks *bool `json:"keep-tool-blocks" mapstructure:"keep-tool-blocks"`
}

func NewModelOptions() *ModelOptions {
	return &ModelOptions{
		Default:   "echo",
		Providers: make(map[string]*ProviderConfig),
	}
}

// PluginName returns the provider plugin backing the config stored under id.
func (p *ProviderConfig) PluginName(id string) string {
	if p.Type != "" {
		return p.Type
	}
	return id
}

// Merge returns a copy of def overlaid with the non-zero fields of p.
func (p *ProviderConfig) Merge(def *ProviderConfig) *ProviderConfig {
	out := &ProviderConfig{}
	if def != nil {
		if err := copier.CopyWithOption(out, def, copier.Option{DeepCopy: true}); err != nil {
			out = &ProviderConfig{}
		}
	}
	if p == nil {
		return out
	}
	if err := copier.CopyWithOption(out, p, copier.Option{DeepCopy: true, IgnoreEmpty: true}); err != nil {
		logger.Warn("[Models] merge provider config: %v", err)
	}
	return out
}

func (o *ModelOptions) Validate() []error {
	var errs []error
	if o.Default == "" {
		errs = append(errs, fmt.Errorf("models.default is required"))
	}
	for id, p := range o.Providers {
		if p == nil {
			errs = append(errs, fmt.Errorf("provider %q: empty configuration", id))
			continue
		}
		if p.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("provider %q: max-tokens must not be negative", id))
		}
		if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
			errs = append(errs, fmt.Errorf("provider %q: temperature must be within [0, 2]", id))
		}
	}
	return errs
}

func (o *ModelOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Default, "models.default", o.Default, "Provider ID used to run conversations (e.g. echo, anthropic, openai, bedrock).")
}
