package tools

import (
	"slices"

	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/pkg/logger"
)

type Config struct {
	Options *options.ToolsOptions
	// Sources add runtime toolkits (MCP servers) to the catalogue.
	Sources []ToolkitSource
}

// CompletedConfig is the completed configuration for the tool catalogue.
type CompletedConfig struct {
	*Config
}

// Complete fills defaults.
func (c *Config) Complete() CompletedConfig {
	if c.Options == nil {
		c.Options = options.NewToolsOptions()
	}
	return CompletedConfig{c}
}

// Module owns the tool catalogue.
type Module struct {
	Catalogue *Catalogue
}

// New builds the catalogue from the enabled built-in tools and the sources.
func (c CompletedConfig) New() *Module {
	var builtins []entity.Tool
	if c.Options.Enabled {
		for _, def := range Builtins(c.Options) {
			if !allowed(c.Options, def.Name) {
				logger.Info("[Tools] built-in tool %q disabled by configuration", def.Name)
				continue
			}
			builtins = append(builtins, def.Build())
		}
	}
	logger.Info("[Tools] tool catalogue initialized (%d built-in tools, %d sources)", len(builtins), len(c.Sources))
	return &Module{Catalogue: NewCatalogue(builtins, c.Sources...)}
}

// Builtins returns every built-in tool definition.
func Builtins(opts *options.ToolsOptions) []Definition {
	return []Definition{
		ShellExec(opts.Shell),
		CurrentTime(nil),
		PlatformContext(),
	}
}

func allowed(opts *options.ToolsOptions, name string) bool {
	if slices.Contains(opts.Deny, name) {
		return false
	}
	return len(opts.Allow) == 0 || slices.Contains(opts.Allow, name)
}
