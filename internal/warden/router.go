package warden

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/kiosk404/warden/internal/warden/handler/v1"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service"
	"github.com/kiosk404/warden/internal/warden/service/tools"
)

// routerDeps holds the dependencies needed for route registration.
type routerDeps struct {
	agents    service.AgentService
	approvals service.ApprovalService
	catalogue *tools.Catalogue
	providers v1.ProviderLister
}

func initRouter(g *gin.Engine, deps *routerDeps) {
	conversations := v1.NewConversationHandler(deps.agents, deps.approvals, deps.catalogue)
	catalog := v1.NewCatalogHandler(deps.catalogue, deps.providers)

	apiV1 := g.Group("/v1")
	{
		apiV1.POST("/conversations", conversations.Execute)
		apiV1.GET("/conversations", conversations.List)
		apiV1.GET("/conversations/:id", conversations.Get)
		apiV1.DELETE("/conversations/:id", conversations.Delete)
		apiV1.POST("/conversations/:id/resume", conversations.Resume)

		// Approvals of pending tool calls.
		apiV1.GET("/conversations/:id/approvals", conversations.ListApprovals)
		apiV1.POST("/conversations/:id/approvals", conversations.Decide)
		apiV1.POST("/conversations/:id/approvals/approve-all", conversations.ApproveAll)
		apiV1.POST("/conversations/:id/approvals/reject-all", conversations.RejectAll)

		apiV1.GET("/tools", catalog.Tools)
		apiV1.GET("/providers", catalog.Providers)
	}
}
