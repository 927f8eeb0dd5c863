package options

import (
	genericoptions "github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/pkg/server"
	"github.com/kiosk404/warden/pkg/utils/cliflag"
	"github.com/kiosk404/warden/pkg/utils/json"
)

// Options is the full option set of the warden server.
type Options struct {
	GenericServerRunOptions *genericoptions.ServerRunOptions `json:"server"   mapstructure:"server"`
	LogOptions              *genericoptions.LogOptions       `json:"log"      mapstructure:"log"`
	StoreOptions            *genericoptions.StoreOptions     `json:"store"    mapstructure:"store"`
	ModelOptions            *genericoptions.ModelOptions     `json:"models"   mapstructure:"models"`
	ApprovalOptions         *genericoptions.ApprovalOptions  `json:"approval" mapstructure:"approval"`
	ToolsOptions            *genericoptions.ToolsOptions     `json:"tools"    mapstructure:"tools"`
	MCPOptions              *MCPOptions                      `json:"mcp"      mapstructure:"mcp"`
}

func NewOptions() *Options {
	return &Options{
		GenericServerRunOptions: genericoptions.NewServerRunOptions(),
		LogOptions:              genericoptions.NewLogOptions(),
		StoreOptions:            genericoptions.NewStoreOptions(),
		ModelOptions:            genericoptions.NewModelOptions(),
		ApprovalOptions:         genericoptions.NewApprovalOptions(),
		ToolsOptions:            genericoptions.NewToolsOptions(),
		MCPOptions:              NewMCPOptions(),
	}
}

func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.GenericServerRunOptions.AddFlags(fss.FlagSet("server"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.ModelOptions.AddFlags(fss.FlagSet("models"))
	o.ApprovalOptions.AddFlags(fss.FlagSet("approval"))
	o.ToolsOptions.AddFlags(fss.FlagSet("tools"))
	o.MCPOptions.AddFlags(fss.FlagSet("mcp"))
	return fss
}

// Validate checks every option group and collects all errors.
func (o *Options) Validate() []error {
	var errs []error
	errs = append(errs, o.GenericServerRunOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.ModelOptions.Validate()...)
	errs = append(errs, o.ApprovalOptions.Validate()...)
	errs = append(errs, o.ToolsOptions.Validate()...)
	errs = append(errs, o.MCPOptions.Validate()...)
	return errs
}

// ApplyTo applies the run options to the generic server config.
func (o *Options) ApplyTo(c *server.Config) error {
	return o.GenericServerRunOptions.ApplyTo(c)
}

// String renders the options as JSON. Provider API keys are masked.
func (o *Options) String() string {
	masked := *o
	if o.ModelOptions != nil {
		models := *o.ModelOptions
		models.Providers = make(map[string]*genericoptions.ProviderConfig, len(o.ModelOptions.Providers))
		for id, p := range o.ModelOptions.Providers {
			if p == nil {
				continue
			}
			cp := *p
			if cp.APIKey != "" {
				cp.APIKey = "******"
			}
			if cp.SecretAccessKey != "" {
				cp.SecretAccessKey = "******"
			}
			models.Providers[id] = &cp
		}
		masked.ModelOptions = &models
	}
	if o.GenericServerRunOptions != nil && o.GenericServerRunOptions.AuthToken != "" {
		srv := *o.GenericServerRunOptions
		srv.AuthToken = "******"
		masked.GenericServerRunOptions = &srv
	}

	data, _ := json.Marshal(masked)
	return string(data)
}

// Complete set default Options.
func (o *Options) Complete() error {
	for id, p := range o.ModelOptions.Providers {
		if p != nil && p.Type == "" {
			p.Type = id
		}
	}
	return nil
}
