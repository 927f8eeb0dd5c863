package tools

import (
	"slices"
	"strings"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
)

// ToolkitSource supplies toolkits discovered at runtime, such as MCP servers.
type ToolkitSource interface {
	Toolkits() []entity.Toolkit
}

// Info describes one catalogue entry for listing.
type Info struct {
	Name                    string `json:"name"`
	Description             string `json:"description"`
	Source                  string `json:"source"`
	RequiresApproval        bool   `json:"requires_approval"`
	RequiresPlatformContext bool   `json:"requires_platform_context"`
}

// Catalogue is the set of tools a request may reference by name.
// Built-in tools come first, followed by one toolkit per MCP server.
type Catalogue struct {
	builtins []entity.Tool
	sources  []ToolkitSource
}

func NewCatalogue(builtins []entity.Tool, sources ...ToolkitSource) *Catalogue {
	return &Catalogue{builtins: builtins, sources: sources}
}

// All returns every tool and toolkit in catalogue order.
func (c *Catalogue) All() []entity.Tool {
	out := slices.Clone(c.builtins)
	for _, src := range c.sources {
		if src == nil {
			continue
		}
		for _, tk := range src.Toolkits() {
			out = append(out, tk)
		}
	}
	return out
}

// Resolve selects tools by name. An empty selection yields the whole
// catalogue. A toolkit name ("mcp:<server>") selects every member of the
// toolkit, and member tools can also be selected one by one.
func (c *Catalogue) Resolve(names []string) ([]entity.Tool, error) {
	all := c.All()
	if len(names) == 0 {
		return all, nil
	}

	index := make(map[string]entity.Tool)
	for _, t := range all {
		index[t.Name()] = t
		if tk, ok := t.(entity.Toolkit); ok {
			for _, member := range tk.Tools() {
				if _, dup := index[member.Name()]; !dup {
					index[member.Name()] = member
				}
			}
		}
	}

	out := make([]entity.Tool, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		t, ok := index[name]
		if !ok {
			return nil, errno.ToolNotFound(name)
		}
		out = append(out, t)
	}
	return out, nil
}

// Describe lists the callable tools, with toolkits expanded.
func (c *Catalogue) Describe() []Info {
	var out []Info
	for _, t := range c.All() {
		if tk, ok := t.(entity.Toolkit); ok {
			for _, member := range tk.Tools() {
				out = append(out, infoOf(member, tk.Name()))
			}
			continue
		}
		out = append(out, infoOf(t, "builtin"))
	}
	return out
}

func infoOf(t entity.Tool, source string) Info {
	return Info{
		Name:                    t.Name(),
		Description:             t.Description(),
		Source:                  source,
		RequiresApproval:        t.RequiresApproval(),
		RequiresPlatformContext: t.RequiresPlatformContext(),
	}
}
