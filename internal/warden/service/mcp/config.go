package mcp

import (
	"fmt"
	"os"
	"slices"

	"github.com/kiosk404/warden/pkg/utils/json"
)

const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

// MCPConfig holds the top-level MCP configuration.
// Compatible with Claude Desktop / VS Code MCP config format.
//
// File format (mcp.json):
//
//	{
//	  "mcpServers": {
//	    "filesystem": {
//	      "transport": "stdio",
//	      "command": "npx",
//	      "args": ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"],
//	      "autoApprove": ["read_file"]
//	    }
//	  }
//	}
type MCPConfig struct {
	MCPServers map[string]*ServerConfig `json:"mcpServers"`
}

// ServerConfig defines the configuration for a single MCP server.
type ServerConfig struct {
	// Transport is "stdio" (default), "sse" or "http" (streamable HTTP).
	Transport string `json:"transport,omitempty"`

	// Command, Args and Env launch a stdio server. Env entries are KEY=VALUE.
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	Env     []string `json:"env,omitempty"`

	// URL is the endpoint of an sse or http server.
	URL string `json:"url,omitempty"`

	// ToolFilter restricts the exposed tools. Empty exposes all of them.
	ToolFilter []string `json:"toolFilter,omitempty"`

	// RequireApproval gates every tool of the server behind a human
	// decision. Defaults to true.
	RequireApproval *bool `json:"requireApproval,omitempty"`

	// AutoApprove lists tools that run without a decision even when
	// RequireApproval is set.
	AutoApprove []string `json:"autoApprove,omitempty"`
}

// ToolRequiresApproval reports whether calls of the named tool need a decision.
func (c *ServerConfig) ToolRequiresApproval(tool string) bool {
	if c.RequireApproval != nil && !*c.RequireApproval {
		return false
	}
	return !slices.Contains(c.AutoApprove, tool)
}

// LoadMCPConfig loads the MCP configuration from a JSON file.
// If the file does not exist, returns an empty config (no error).
func LoadMCPConfig(path string) (*MCPConfig, error) {
	if path == "" {
		return NewMCPConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewMCPConfig(), nil
		}
		return nil, fmt.Errorf("failed to read MCP config file %q: %w", path, err)
	}

	cfg := &MCPConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse MCP config file %q: %w", path, err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]*ServerConfig)
	}
	return cfg, nil
}

// NewMCPConfig creates a default (empty) MCP configuration.
func NewMCPConfig() *MCPConfig {
	return &MCPConfig{
		MCPServers: make(map[string]*ServerConfig),
	}
}

func knownTransport(t string) bool {
	switch t {
	case "", TransportStdio, TransportSSE, TransportHTTP:
		return true
	}
	return false
}

// Validate checks the MCP configuration for obvious errors.
func (c *MCPConfig) Validate() []error {
	var errs []error
	for name, srv := range c.MCPServers {
		if srv == nil {
			errs = append(errs, fmt.Errorf("mcpServers.%s: empty configuration", name))
			continue
		}
		switch srv.Transport {
		case "", TransportStdio:
			if srv.Command == "" {
				errs = append(errs, fmt.Errorf("mcpServers.%s: command is required for stdio transport", name))
			}
		case TransportSSE, TransportHTTP:
			if srv.URL == "" {
				errs = append(errs, fmt.Errorf("mcpServers.%s: url is required for %s transport", name, srv.Transport))
			}
		default:
			errs = append(errs, fmt.Errorf("mcpServers.%s: unsupported transport %q (must be 'stdio', 'sse' or 'http')", name, srv.Transport))
		}
	}
	return errs
}
