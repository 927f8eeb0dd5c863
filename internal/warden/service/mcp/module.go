package mcp

import (
	"context"
	"errors"

	"github.com/kiosk404/warden/pkg/logger"
)

type Config struct {
	MCPConfig *MCPConfig

	// ConfigFile, when Watch is set, is re-applied on every change.
	ConfigFile string
	Watch      bool
}

// CompletedConfig is the completed configuration for MCP.
type CompletedConfig struct {
	*Config
}

// Complete fills defaults.
func (c *Config) Complete() CompletedConfig {
	if c.MCPConfig == nil {
		c.MCPConfig = NewMCPConfig()
	}
	complete(c.MCPConfig)
	return CompletedConfig{c}
}

func complete(cfg *MCPConfig) {
	for _, srv := range cfg.MCPServers {
		if srv != nil && srv.Transport == "" {
			srv.Transport = TransportStdio
		}
	}
}

// Module is the top-level MCP module.
type Module struct {
	Manager Manager

	watcher *ConfigWatcher
}

// New creates the MCP module and connects the configured servers.
// Servers that fail to connect are logged and contribute no tools.
func (c CompletedConfig) New(ctx context.Context) (*Module, error) {
	mgr := newManager(c.MCPConfig)

	if err := mgr.Initialize(ctx); err != nil {
		logger.Warn("[MCP] initialization had error: %v", err)
	}
	logger.Info("[MCP] module initialized (%d servers configured)", len(c.MCPConfig.MCPServers))

	m := &Module{Manager: mgr}
	if c.Watch && c.ConfigFile != "" {
		w, err := WatchConfig(c.ConfigFile, mgr, DefaultReloadDelay)
		if err != nil {
			_ = mgr.Close()
			return nil, err
		}
		m.watcher = w
	}
	return m, nil
}

// Close releases all resources held by the MCP module.
func (m *Module) Close() error {
	var errs []error
	if m.watcher != nil {
		errs = append(errs, m.watcher.Close())
	}
	if m.Manager != nil {
		errs = append(errs, m.Manager.Close())
	}
	return errors.Join(errs...)
}
