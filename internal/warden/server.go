package warden

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiosk404/warden/internal/warden/config"
	"github.com/kiosk404/warden/internal/warden/handler/middleware"
	"github.com/kiosk404/warden/internal/warden/service/agents"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service"
	"github.com/kiosk404/warden/internal/warden/service/llm"
	"github.com/kiosk404/warden/internal/warden/service/mcp"
	"github.com/kiosk404/warden/internal/warden/service/tools"
	genericapiserver "github.com/kiosk404/warden/internal/pkg/server"
	"github.com/kiosk404/warden/pkg/logger"
	"github.com/kiosk404/warden/pkg/utils/safego"
)

type apiServer struct {
	genericAPIServer *genericapiserver.GenericAPIServer

	llmModule    *llm.Module
	mcpModule    *mcp.Module
	toolsModule  *tools.Module
	agentsModule *agents.Module
}

type preparedAPIServer struct {
	*apiServer
}

func createAPIServer(cfg *config.Config) (*apiServer, error) {
	ctx := context.Background()

	genericConfig, err := buildGenericConfig(cfg)
	if err != nil {
		return nil, err
	}
	genericServer, err := genericConfig.Complete().New()
	if err != nil {
		return nil, err
	}

	// Initialize LLM module (K8S-style: Config → Complete → New).
	llmCfg := &llm.Config{
		ModelOptions: cfg.ModelOptions,
	}
	llmModule, err := llmCfg.Complete().New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM module: %w", err)
	}
	runtimeAdapter, err := llmModule.DefaultAdapter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build runtime adapter %q: %w", llmModule.Default(), err)
	}

	// MCP servers come from a standalone file (Claude Desktop compatible format).
	mcpFileCfg, err := mcp.LoadMCPConfig(cfg.MCPOptions.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load MCP config from %q: %w", cfg.MCPOptions.ConfigFile, err)
	}
	if errs := mcpFileCfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid MCP config %q: %w", cfg.MCPOptions.ConfigFile, errors.Join(errs...))
	}
	mcpModule, err := (&mcp.Config{
		MCPConfig:  mcpFileCfg,
		ConfigFile: cfg.MCPOptions.ConfigFile,
		Watch:      cfg.MCPOptions.Watch,
	}).Complete().New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP module: %w", err)
	}

	toolsModule := (&tools.Config{
		Options: cfg.ToolsOptions,
		Sources: []tools.ToolkitSource{mcpModule.Manager},
	}).Complete().New()

	agentsCfg := &agents.Config{
		StoreType: cfg.StoreOptions.Type,
		StorePath: cfg.StoreOptions.Path,
		Policy: service.ApprovalPolicy{
			RequireApproval: cfg.ApprovalOptions.RequireApproval,
			AutoApprove:     cfg.ApprovalOptions.AutoApprove,
		},
	}
	agentsModule, err := agentsCfg.Complete().New(ctx, agents.Dependencies{
		Runtime: runtimeAdapter,
	})
	if err != nil {
		_ = mcpModule.Close()
		return nil, fmt.Errorf("failed to create Agents module: %w", err)
	}
	logger.Info("[Warden] modules initialized (runtime=%s, store=%s)", runtimeAdapter.Name(), agentsCfg.StoreType)

	return &apiServer{
		genericAPIServer: genericServer,
		llmModule:        llmModule,
		mcpModule:        mcpModule,
		toolsModule:      toolsModule,
		agentsModule:     agentsModule,
	}, nil
}

func (s *apiServer) PrepareRun() preparedAPIServer {
	initRouter(s.genericAPIServer.Engine, &routerDeps{
		agents:    s.agentsModule.Agents,
		approvals: s.agentsModule.Approvals,
		catalogue: s.toolsModule.Catalogue,
		providers: s.llmModule,
	})
	return preparedAPIServer{s}
}

// Run serves until SIGINT or SIGTERM, then closes the server and the
// modules in reverse order of creation.
func (s preparedAPIServer) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	safego.Go(ctx, func() {
		errCh <- s.genericAPIServer.Run()
	})

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("[Warden] received shutdown signal, stopping")
	case runErr = <-errCh:
	}

	s.genericAPIServer.Close()
	s.shutdown()
	return runErr
}

func (s *apiServer) shutdown() {
	if s.agentsModule != nil {
		if err := s.agentsModule.Close(); err != nil {
			logger.Warn("[Warden] close agents module: %v", err)
		}
	}
	if s.mcpModule != nil {
		if err := s.mcpModule.Close(); err != nil {
			logger.Warn("[Warden] close MCP module: %v", err)
		}
	}
}

func buildGenericConfig(cfg *config.Config) (genericConfig *genericapiserver.Config, lastErr error) {
	genericConfig = genericapiserver.NewConfig()
	if lastErr = cfg.ApplyTo(genericConfig); lastErr != nil {
		return
	}
	genericConfig.Middlewares = append(genericConfig.Middlewares,
		middleware.BearerAuth(&middleware.AuthConfig{Token: cfg.GenericServerRunOptions.AuthToken}))
	return
}
