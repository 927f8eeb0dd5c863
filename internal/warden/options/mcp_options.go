package options

import (
	"errors"

	"github.com/spf13/pflag"
)

// MCPOptions holds options for the MCP (Model Context Protocol) tool sources.
// Servers are declared in a standalone, Claude Desktop compatible file.
type MCPOptions struct {
	// ConfigFile is the path to the MCP configuration file. A missing file
	// means no MCP servers.
	ConfigFile string `json:"config-file" mapstructure:"config-file"`
	// Watch re-applies the file whenever it changes.
	Watch bool `json:"watch" mapstructure:"watch"`
}

// NewMCPOptions creates a default MCPOptions instance.
func NewMCPOptions() *MCPOptions {
	return &MCPOptions{
		ConfigFile: "conf/mcp.json",
	}
}

// Validate checks the MCPOptions for correctness.
func (o *MCPOptions) Validate() []error {
	if o.ConfigFile == "" {
		return []error{errors.New("--mcp.config-file is required")}
	}
	return nil
}

// AddFlags adds the MCPOptions flags to the given flag set.
func (o *MCPOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "mcp.config-file", o.ConfigFile, "Path to the MCP configuration file.")
	fs.BoolVar(&o.Watch, "mcp.watch", o.Watch, "Reload MCP servers when the configuration file changes.")
}
