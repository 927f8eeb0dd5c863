package mcp

import (
	"context"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
)

// Manager manages multiple MCP server connections and provides
// their tools as toolkits.
type Manager interface {
	// Initialize connects to all configured MCP servers.
	Initialize(ctx context.Context) error

	// Toolkits returns one toolkit per connected server, in name order.
	Toolkits() []entity.Toolkit

	// Reconnect closes the current connection and establishes a new one.
	Reconnect(ctx context.Context, serverName string) error

	// ServerNames returns all configured server names in sorted order.
	ServerNames() []string

	// ServerStatus returns the current status of a specific server.
	ServerStatus(serverName string) ServerStatus

	// Apply brings the server set in line with cfg: removed servers are
	// closed, added ones connected and changed ones reconnected.
	Apply(ctx context.Context, cfg *MCPConfig) error

	// Close closes all MCP server connections.
	Close() error
}
