package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/gg/gptr"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
)

func newTestServer() *server.MCPServer {
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	s.AddTool(
		mcp.NewTool("greet",
			mcp.WithDescription("Greets someone"),
			mcp.WithString("name", mcp.Required()),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText("hello " + name), nil
		},
	)
	s.AddTool(
		mcp.NewTool("delete_file", mcp.WithDescription("Deletes a file"), mcp.WithString("path")),
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("deleted"), nil
		},
	)
	return s
}

func inProcess(s *server.MCPServer) dialFunc {
	return func(ctx context.Context) (*client.Client, error) {
		cli, err := client.NewInProcessClient(s)
		if err != nil {
			return nil, err
		}
		if err := cli.Start(ctx); err != nil {
			return nil, err
		}
		return cli, nil
	}
}

func connectedServer(t *testing.T, name string, cfg *ServerConfig) *MCPServer {
	t.Helper()
	srv := NewMCPServer(name, cfg)
	srv.dial = inProcess(newTestServer())
	require.NoError(t, srv.Connect(context.Background()))
	t.Cleanup(srv.Close)
	return srv
}

func toolByName(t *testing.T, tk entity.Toolkit, name string) entity.Tool {
	t.Helper()
	for _, tool := range tk.Tools() {
		if tool.Name() == name {
			return tool
		}
	}
	t.Fatalf("tool %q not found", name)
	return nil
}

func TestServerDiscoversTools(t *testing.T) {
	srv := connectedServer(t, "local", &ServerConfig{AutoApprove: []string{"greet"}})
	assert.Equal(t, ServerStatusConnected, srv.Status())

	tk := srv.Toolkit()
	require.NotNil(t, tk)
	assert.Equal(t, "mcp:local", tk.Name())
	assert.Len(t, tk.Tools(), 2)

	greet := toolByName(t, tk, "greet")
	assert.Equal(t, "Greets someone", greet.Description())
	assert.False(t, greet.RequiresApproval())
	assert.Contains(t, string(greet.Schema()), `"name"`)

	assert.True(t, toolByName(t, tk, "delete_file").RequiresApproval())
}

func TestToolExecuteCallsServer(t *testing.T) {
	srv := connectedServer(t, "local", &ServerConfig{})
	greet := toolByName(t, srv.Toolkit(), "greet")

	out, err := greet.Execute(context.Background(), entity.NewToolInput(map[string]any{"name": "ada"}), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "hello ada")
}

func TestToolFilter(t *testing.T) {
	srv := connectedServer(t, "local", &ServerConfig{ToolFilter: []string{"greet"}})
	tools := srv.Toolkit().Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, "greet", tools[0].Name())
}

func TestToolkitIsNotExecutable(t *testing.T) {
	srv := connectedServer(t, "local", &ServerConfig{})
	_, err := srv.Toolkit().Execute(context.Background(), entity.ToolInput{}, nil)
	assert.Error(t, err)
}

func TestServerCloseResetsState(t *testing.T) {
	srv := connectedServer(t, "local", &ServerConfig{})
	srv.Close()
	assert.Equal(t, ServerStatusDisconnected, srv.Status())
	assert.Nil(t, srv.Toolkit())

	require.NoError(t, srv.Reconnect(context.Background()))
	assert.Equal(t, ServerStatusConnected, srv.Status())
}

func TestManagerToolkits(t *testing.T) {
	m := newManager(&MCPConfig{MCPServers: map[string]*ServerConfig{
		"zeta":   {RequireApproval: gptr.Of(false)},
		"alpha":  {},
		"broken": {Transport: "carrier-pigeon"},
	}})
	for _, name := range []string{"zeta", "alpha"} {
		m.servers[name].dial = inProcess(newTestServer())
	}
	defer m.Close()

	require.NoError(t, m.Initialize(context.Background()))
	assert.Equal(t, []string{"alpha", "broken", "zeta"}, m.ServerNames())
	assert.Equal(t, ServerStatusError, m.ServerStatus("broken"))
	assert.Equal(t, ServerStatusDisconnected, m.ServerStatus("missing"))

	tks := m.Toolkits()
	require.Len(t, tks, 2)
	assert.Equal(t, "mcp:alpha", tks[0].Name())
	assert.Equal(t, "mcp:zeta", tks[1].Name())
	assert.False(t, toolByName(t, tks[1], "delete_file").RequiresApproval())

	assert.Error(t, m.Reconnect(context.Background(), "missing"))
}

func TestManagerAllFailed(t *testing.T) {
	m := newManager(&MCPConfig{MCPServers: map[string]*ServerConfig{
		"broken": {Transport: "carrier-pigeon"},
	}})
	assert.Error(t, m.Initialize(context.Background()))
	assert.Empty(t, m.Toolkits())
}

func TestLoadMCPConfig(t *testing.T) {
	cfg, err := LoadMCPConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)

	path := filepath.Join(t.TempDir(), "mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"mcpServers": {
			"fs": {"command": "npx", "args": ["-y", "server-fs"], "autoApprove": ["read_file"]},
			"remote": {"transport": "http", "url": "http://127.0.0.1:9000/mcp", "requireApproval": false}
		}
	}`), 0o600))

	cfg, err = LoadMCPConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.MCPServers, 2)
	assert.Empty(t, cfg.Validate())

	fs := cfg.MCPServers["fs"]
	assert.Equal(t, []string{"-y", "server-fs"}, fs.Args)
	assert.False(t, fs.ToolRequiresApproval("read_file"))
	assert.True(t, fs.ToolRequiresApproval("write_file"))
	assert.False(t, cfg.MCPServers["remote"].ToolRequiresApproval("anything"))

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, err = LoadMCPConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &MCPConfig{MCPServers: map[string]*ServerConfig{
		"a": {},
		"b": {Transport: TransportSSE},
		"c": {Transport: "ftp"},
		"d": nil,
	}}
	assert.Len(t, cfg.Validate(), 4)
}

func TestCompleteFillsTransport(t *testing.T) {
	cfg := (&Config{MCPConfig: &MCPConfig{MCPServers: map[string]*ServerConfig{"a": {Command: "x"}}}}).Complete()
	assert.Equal(t, TransportStdio, cfg.MCPConfig.MCPServers["a"].Transport)

	m, err := (&Config{}).Complete().New(context.Background())
	require.NoError(t, err)
	assert.Empty(t, m.Manager.ServerNames())
	assert.NoError(t, m.Close())
}
