package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/kiosk404/warden/internal/pkg/core"
	"github.com/kiosk404/warden/internal/warden/service/tools"
)

// ToolDescriber lists the server tool catalogue.
type ToolDescriber interface {
	Describe() []tools.Info
}

// ProviderLister lists the runtime providers.
type ProviderLister interface {
	Default() string
	Providers() []string
}

// CatalogHandler serves the read-only tool and provider listings.
type CatalogHandler struct {
	tools     ToolDescriber
	providers ProviderLister
}

func NewCatalogHandler(tools ToolDescriber, providers ProviderLister) *CatalogHandler {
	return &CatalogHandler{tools: tools, providers: providers}
}

// Tools handles GET /v1/tools.
func (h *CatalogHandler) Tools(c *gin.Context) {
	infos := h.tools.Describe()
	if infos == nil {
		infos = []tools.Info{}
	}
	core.WriteResponse(c, nil, gin.H{"data": infos})
}

// Providers handles GET /v1/providers.
func (h *CatalogHandler) Providers(c *gin.Context) {
	core.WriteResponse(c, nil, ProvidersResponse{
		Default:   h.providers.Default(),
		Providers: h.providers.Providers(),
	})
}
