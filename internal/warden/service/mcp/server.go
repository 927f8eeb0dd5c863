package mcp

import (
	"context"
	"fmt"
	"sync"

	mcpTool "github.com/cloudwego/eino-ext/components/tool/mcp"
	"github.com/kiosk404/warden/pkg/logger"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	clientName    = "warden"
	clientVersion = "0.1.0"
)

// ServerStatus represents the connection state of an MCP server.
type ServerStatus int

const (
	ServerStatusDisconnected ServerStatus = iota
	ServerStatusConnecting
	ServerStatusConnected
	ServerStatusError
)

func (s ServerStatus) String() string {
	switch s {
	case ServerStatusDisconnected:
		return "Disconnected"
	case ServerStatusConnecting:
		return "Connecting"
	case ServerStatusConnected:
		return "Connected"
	case ServerStatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// dialFunc creates a started, not yet initialized client.
type dialFunc func(ctx context.Context) (*client.Client, error)

// MCPServer is one configured MCP server and the tools discovered on it.
type MCPServer struct {
	name   string
	config *ServerConfig
	dial   dialFunc

	mu      sync.RWMutex
	client  *client.Client
	toolkit *Toolkit
	status  ServerStatus
	err     error
}

// NewMCPServer creates a new MCP server instance.
func NewMCPServer(name string, cfg *ServerConfig) *MCPServer {
	s := &MCPServer{
		name:   name,
		config: cfg,
		status: ServerStatusDisconnected,
	}
	s.dial = s.createClient
	return s
}

func (s *MCPServer) Name() string {
	return s.name
}

// Status returns the current connection status.
func (s *MCPServer) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the last connection error.
func (s *MCPServer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Toolkit returns the discovered tools, or nil when not connected.
func (s *MCPServer) Toolkit() *Toolkit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toolkit
}

// Connect establishes a connection to the MCP server and discovers tools.
func (s *MCPServer) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = ServerStatusConnecting
	s.err = nil

	if !knownTransport(s.config.Transport) {
		return s.fail(fmt.Errorf("[MCP] server %q: unknown transport: %s", s.name, s.config.Transport))
	}
	cli, err := s.dial(ctx)
	if err != nil {
		return s.fail(fmt.Errorf("[MCP] server %q: failed to create client: %w", s.name, err))
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		cli.Close()
		return s.fail(fmt.Errorf("[MCP] server %q: failed to initialize: %w", s.name, err))
	}

	// Discover tools via eino-ext/mcp.GetTools
	tools, err := mcpTool.GetTools(ctx, &mcpTool.Config{
		Cli:          cli,
		ToolNameList: s.config.ToolFilter,
	})
	if err != nil {
		cli.Close()
		return s.fail(fmt.Errorf("[MCP] server %q: failed to get tools: %w", s.name, err))
	}

	toolkit, err := newToolkit(ctx, s.name, s.config, tools)
	if err != nil {
		cli.Close()
		return s.fail(fmt.Errorf("[MCP] server %q: %w", s.name, err))
	}

	s.client = cli
	s.toolkit = toolkit
	s.status = ServerStatusConnected
	logger.Info("[MCP] server %q connected with %d tools", s.name, len(toolkit.Tools()))
	return nil
}

// fail records err. Must be called with s.mu held.
func (s *MCPServer) fail(err error) error {
	s.status = ServerStatusError
	s.err = err
	return err
}

// Reconnect closes the current connection and establishes a new one.
func (s *MCPServer) Reconnect(ctx context.Context) error {
	s.Close()
	return s.Connect(ctx)
}

// Close closes the current connection and releases resources.
func (s *MCPServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logger.Warn("[MCP] server %q: failed to close client: %v", s.name, err)
		}
		s.client = nil
	}

	s.toolkit = nil
	s.status = ServerStatusDisconnected
	s.err = nil
}

// createClient creates a transport-specific MCP client. Stdio clients start
// on creation; the others are started here.
func (s *MCPServer) createClient(ctx context.Context) (*client.Client, error) {
	var (
		cli *client.Client
		err error
	)
	switch s.config.Transport {
	case "", TransportStdio:
		return client.NewStdioMCPClient(s.config.Command, s.config.Env, s.config.Args...)
	case TransportSSE:
		cli, err = client.NewSSEMCPClient(s.config.URL)
	case TransportHTTP:
		cli, err = client.NewStreamableHttpClient(s.config.URL)
	default:
		return nil, fmt.Errorf("unknown transport: %s", s.config.Transport)
	}
	if err != nil {
		return nil, err
	}
	if err := cli.Start(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("starting %s transport: %w", s.config.Transport, err)
	}
	return cli, nil
}
