package service

import (
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/logger"
)

// ToolRegistry resolves tool names for one request. Toolkits are expanded
// into their member tools and never exposed themselves.
type ToolRegistry struct {
	tools  []entity.Tool
	byName map[string]entity.Tool
}

// NewToolRegistry registers tools in order. A tool whose name is already
// registered is skipped.
func NewToolRegistry(tools ...entity.Tool) *ToolRegistry {
	r := &ToolRegistry{byName: make(map[string]entity.Tool, len(tools))}
	for _, t := range tools {
		r.add(t)
	}
	return r
}

func (r *ToolRegistry) add(t entity.Tool) {
	if t == nil {
		return
	}
	if kit, ok := t.(entity.Toolkit); ok {
		for _, member := range kit.Tools() {
			r.add(member)
		}
		return
	}
	name := t.Name()
	if _, dup := r.byName[name]; dup {
		logger.WarnX(pkg.ModuleName, "[ToolRegistry] duplicate tool %q skipped", name)
		return
	}
	r.byName[name] = t
	r.tools = append(r.tools, t)
}

// Lookup returns errno.ErrToolNotFound for unknown names.
func (r *ToolRegistry) Lookup(name string) (entity.Tool, error) {
	if t, ok := r.byName[name]; ok {
		return t, nil
	}
	return nil, errno.ToolNotFound(name)
}

// List returns the tools in registration order.
func (r *ToolRegistry) List() []entity.Tool {
	return append([]entity.Tool(nil), r.tools...)
}

func (r *ToolRegistry) Len() int { return len(r.tools) }
