// Package wardentest runs an in-memory warden API for client tests.
package wardentest

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kiosk404/warden/internal/warden/handler/middleware"
	v1 "github.com/kiosk404/warden/internal/warden/handler/v1"
	"github.com/kiosk404/warden/internal/warden/service/agents"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/echo"
	"github.com/kiosk404/warden/internal/warden/service/tools"
)

// DeployTool requires approval and returns "deployed <service>".
func DeployTool() entity.Tool {
	return tools.Definition{
		Name:             "deploy",
		Description:      "deploys a service",
		Parameters:       []tools.ParameterDef{{Name: "service", Type: "string", Required: true}},
		RequiresApproval: true,
		Handler: func(_ context.Context, in entity.ToolInput, _ entity.PlatformContext) (string, error) {
			svc, _ := in.GetString("service")
			return "deployed " + svc, nil
		},
	}.Build()
}

type Options struct {
	// Token enables bearer authentication. Requests are treated as remote.
	Token string
	// Tools is the catalogue. Nil offers DeployTool only.
	Tools []entity.Tool
}

type staticProviders struct{}

func (staticProviders) Default() string     { return "echo" }
func (staticProviders) Providers() []string { return []string{"echo"} }

// NewServer starts a server backed by the echo runtime and the memory
// store. It is closed when the test ends.
func NewServer(tb testing.TB, opts Options) *httptest.Server {
	tb.Helper()
	gin.SetMode(gin.TestMode)

	mod, err := (&agents.Config{StoreType: agents.StoreMemory}).Complete().New(context.Background(), agents.Dependencies{
		Runtime: echo.NewAdapter("echo-1", runtime.NormalizeOptions{KeepToolBlocks: true, PairToolBlocks: true}),
	})
	if err != nil {
		tb.Fatalf("create agents module: %v", err)
	}

	toolset := opts.Tools
	if toolset == nil {
		toolset = []entity.Tool{DeployTool()}
	}
	catalogue := tools.NewCatalogue(toolset)

	conv := v1.NewConversationHandler(mod.Agents, mod.Approvals, catalogue)
	catalog := v1.NewCatalogHandler(catalogue, staticProviders{})

	g := gin.New()
	if opts.Token != "" {
		// httptest listens on loopback, which the middleware trusts.
		g.Use(func(c *gin.Context) {
			c.Request.RemoteAddr = "203.0.113.7:4000"
			c.Next()
		})
	}
	g.Use(middleware.BearerAuth(&middleware.AuthConfig{Token: opts.Token}))

	api := g.Group("/v1")
	api.POST("/conversations", conv.Execute)
	api.GET("/conversations", conv.List)
	api.GET("/conversations/:id", conv.Get)
	api.DELETE("/conversations/:id", conv.Delete)
	api.POST("/conversations/:id/resume", conv.Resume)
	api.GET("/conversations/:id/approvals", conv.ListApprovals)
	api.POST("/conversations/:id/approvals", conv.Decide)
	api.POST("/conversations/:id/approvals/approve-all", conv.ApproveAll)
	api.POST("/conversations/:id/approvals/reject-all", conv.RejectAll)
	api.GET("/tools", catalog.Tools)
	api.GET("/providers", catalog.Providers)

	srv := httptest.NewServer(g)
	tb.Cleanup(func() {
		srv.Close()
		_ = mod.Close()
	})
	return srv
}
