package mcp

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/pkg/logger"
	"github.com/kiosk404/warden/pkg/utils/safego"
)

// managerImpl is the default implementation of Manager.
type managerImpl struct {
	mu      sync.RWMutex
	servers map[string]*MCPServer
	order   []string // sorted server names

	newServer func(name string, cfg *ServerConfig) *MCPServer
}

var _ Manager = (*managerImpl)(nil)

func newManager(cfg *MCPConfig) *managerImpl {
	m := &managerImpl{
		servers: make(map[string]*MCPServer, len(cfg.MCPServers)),
		order:   make([]string, 0, len(cfg.MCPServers)),

		newServer: NewMCPServer,
	}
	for name, srvCfg := range cfg.MCPServers {
		m.add(m.newServer(name, srvCfg))
	}
	return m
}

func (m *managerImpl) add(srv *MCPServer) {
	m.servers[srv.Name()] = srv
	m.order = append(m.order, srv.Name())
	slices.Sort(m.order)
}

// Initialize connects to all configured MCP servers concurrently.
// Individual server failures are logged but don't prevent other servers from connecting.
func (m *managerImpl) Initialize(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.servers) == 0 {
		logger.Info("[MCP] no MCP servers configured, skipping initialization")
		return nil
	}

	logger.Info("[MCP] initializing %d MCP servers...", len(m.servers))

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)
	for _, srv := range m.servers {
		wg.Add(1)
		safego.Go(ctx, func() {
			defer wg.Done()
			if err := srv.Connect(ctx); err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
				logger.Warn("[MCP] server %q failed to connect: %v", srv.Name(), err)
			}
		})
	}
	wg.Wait()

	connected := 0
	for _, srv := range m.servers {
		if srv.Status() == ServerStatusConnected {
			connected++
		}
	}
	logger.Info("[MCP] initialization complete: %d/%d servers connected", connected, len(m.servers))

	if len(errs) > 0 && connected == 0 {
		return fmt.Errorf("[MCP] all servers failed to connect: %w", errors.Join(errs...))
	}
	return nil
}

func (m *managerImpl) Toolkits() []entity.Toolkit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entity.Toolkit
	for _, name := range m.order {
		if tk := m.servers[name].Toolkit(); tk != nil {
			out = append(out, tk)
		}
	}
	return out
}

func (m *managerImpl) Reconnect(ctx context.Context, serverName string) error {
	m.mu.RLock()
	srv, ok := m.servers[serverName]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("[MCP] server %q not found", serverName)
	}
	return srv.Reconnect(ctx)
}

func (m *managerImpl) ServerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

func (m *managerImpl) ServerStatus(serverName string) ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	srv, ok := m.servers[serverName]
	if !ok {
		return ServerStatusDisconnected
	}
	return srv.Status()
}

func (m *managerImpl) Apply(ctx context.Context, cfg *MCPConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		removed, added []string
		errs           []error
	)
	for name, srv := range m.servers {
		next, ok := cfg.MCPServers[name]
		if ok && reflect.DeepEqual(next, srv.config) {
			continue
		}
		srv.Close()
		delete(m.servers, name)
		removed = append(removed, name)
	}
	for name, srvCfg := range cfg.MCPServers {
		if _, ok := m.servers[name]; ok {
			continue
		}
		srv := m.newServer(name, srvCfg)
		m.servers[name] = srv
		added = append(added, name)
		if err := srv.Connect(ctx); err != nil {
			logger.Warn("[MCP] server %q failed to connect: %v", name, err)
			errs = append(errs, err)
		}
	}

	m.order = m.order[:0]
	for name := range m.servers {
		m.order = append(m.order, name)
	}
	slices.Sort(m.order)

	logger.Info("[MCP] configuration applied: %d server(s) stopped, %d started", len(removed), len(added))
	return errors.Join(errs...)
}

func (m *managerImpl) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, srv := range m.servers {
		srv.Close()
	}
	logger.Info("[MCP] all servers closed")
	return nil
}
