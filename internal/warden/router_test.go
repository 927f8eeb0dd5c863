package warden

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genericoptions "github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/agents"
	"github.com/kiosk404/warden/internal/warden/service/llm"
	"github.com/kiosk404/warden/internal/warden/service/tools"
)

func TestRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	llmModule, err := (&llm.Config{ModelOptions: genericoptions.NewModelOptions()}).Complete().New(ctx)
	require.NoError(t, err)
	adapter, err := llmModule.DefaultAdapter(ctx)
	require.NoError(t, err)

	agentsModule, err := (&agents.Config{StoreType: agents.StoreMemory}).Complete().New(ctx, agents.Dependencies{Runtime: adapter})
	require.NoError(t, err)
	t.Cleanup(func() { _ = agentsModule.Close() })

	toolsModule := (&tools.Config{}).Complete().New()

	g := gin.New()
	initRouter(g, &routerDeps{
		agents:    agentsModule.Agents,
		approvals: agentsModule.Approvals,
		catalogue: toolsModule.Catalogue,
		providers: llmModule,
	})

	routes := map[string]bool{}
	for _, r := range g.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /v1/conversations",
		"GET /v1/conversations/:id",
		"POST /v1/conversations/:id/resume",
		"POST /v1/conversations/:id/approvals",
		"POST /v1/conversations/:id/approvals/reject-all",
		"GET /v1/tools",
		"GET /v1/providers",
	} {
		assert.True(t, routes[want], want)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations", strings.NewReader(`{"content":"ping"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "echo: ping")

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/tools", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shell_exec")
}
