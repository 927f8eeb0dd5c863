package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inProcessManager(cfg *MCPConfig) *managerImpl {
	m := newManager(&MCPConfig{})
	m.newServer = func(name string, cfg *ServerConfig) *MCPServer {
		srv := NewMCPServer(name, cfg)
		srv.dial = inProcess(newTestServer())
		return srv
	}
	for name, srvCfg := range cfg.MCPServers {
		m.add(m.newServer(name, srvCfg))
	}
	return m
}

func TestManagerApply(t *testing.T) {
	ctx := context.Background()
	m := inProcessManager(&MCPConfig{MCPServers: map[string]*ServerConfig{
		"keep":   {Command: "a"},
		"change": {Command: "b"},
		"drop":   {Command: "c"},
	}})
	defer m.Close()
	require.NoError(t, m.Initialize(ctx))
	kept := m.servers["keep"]
	changed := m.servers["change"]

	require.NoError(t, m.Apply(ctx, &MCPConfig{MCPServers: map[string]*ServerConfig{
		"keep":   {Command: "a"},
		"change": {Command: "b", ToolFilter: []string{"greet"}},
		"new":    {Command: "d"},
	}}))

	assert.Equal(t, []string{"change", "keep", "new"}, m.ServerNames())
	assert.Same(t, kept, m.servers["keep"])
	assert.NotSame(t, changed, m.servers["change"])
	assert.Equal(t, ServerStatusDisconnected, changed.Status())
	assert.Equal(t, ServerStatusConnected, m.ServerStatus("new"))
	require.NotNil(t, m.servers["change"].Toolkit())
	assert.Len(t, m.servers["change"].Toolkit().Tools(), 1)

	err := m.Apply(ctx, &MCPConfig{MCPServers: map[string]*ServerConfig{
		"keep": {Command: "a"},
		"bad":  {Transport: "carrier-pigeon"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport: carrier-pigeon")
	assert.Equal(t, []string{"bad", "keep"}, m.ServerNames())
	assert.Equal(t, ServerStatusError, m.ServerStatus("bad"))
	assert.Len(t, m.Toolkits(), 1)
}

// waitReload waits for a reload whose outcome matches wantErr. A single
// save may produce more than one reload.
func waitReload(t *testing.T, w *ConfigWatcher, wantErr bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-w.reloaded:
			if (err != nil) == wantErr {
				return
			}
		case <-deadline:
			t.Fatalf("no reload with error=%v", wantErr)
		}
	}
}

func TestConfigWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": {}}`), 0o600))

	m := inProcessManager(&MCPConfig{})
	defer m.Close()

	w, err := WatchConfig(path, m, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": {"alpha": {"command": "srv"}}}`), 0o600))
	waitReload(t, w, false)
	assert.Equal(t, []string{"alpha"}, m.ServerNames())
	assert.Equal(t, ServerStatusConnected, m.ServerStatus("alpha"))
	assert.Equal(t, TransportStdio, m.servers["alpha"].config.Transport)

	// An invalid file keeps the running servers.
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": {"alpha": {"transport": "ftp"}}}`), 0o600))
	waitReload(t, w, true)
	assert.Equal(t, ServerStatusConnected, m.ServerStatus("alpha"))

	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
