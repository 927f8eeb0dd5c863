package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	jsonutil "github.com/kiosk404/warden/pkg/utils/json"
)

var (
	_ entity.Toolkit = (*Toolkit)(nil)
	_ entity.Tool    = (*Tool)(nil)
)

// Toolkit exposes the tools of one MCP server to the conversation core.
type Toolkit struct {
	server string
	tools  []entity.Tool
}

func newToolkit(ctx context.Context, server string, cfg *ServerConfig, tools []tool.BaseTool) (*Toolkit, error) {
	tk := &Toolkit{server: server, tools: make([]entity.Tool, 0, len(tools))}
	for _, bt := range tools {
		invokable, ok := bt.(tool.InvokableTool)
		if !ok {
			continue
		}
		t, err := newTool(ctx, invokable, cfg)
		if err != nil {
			return nil, err
		}
		tk.tools = append(tk.tools, t)
	}
	return tk, nil
}

func (k *Toolkit) Name() string                  { return "mcp:" + k.server }
func (k *Toolkit) Description() string           { return fmt.Sprintf("tools of MCP server %s", k.server) }
func (k *Toolkit) Schema() json.RawMessage       { return nil }
func (k *Toolkit) RequiresApproval() bool        { return false }
func (k *Toolkit) RequiresPlatformContext() bool { return false }
func (k *Toolkit) Tools() []entity.Tool          { return append([]entity.Tool(nil), k.tools...) }

func (k *Toolkit) Execute(context.Context, entity.ToolInput, entity.PlatformContext) (string, error) {
	return "", errors.New("an MCP toolkit cannot be executed directly")
}

// Tool is one MCP tool. Calls go through the Eino tool wrapper, which
// forwards them to the server.
type Tool struct {
	name             string
	description      string
	schema           json.RawMessage
	requiresApproval bool
	invokable        tool.InvokableTool
}

func newTool(ctx context.Context, invokable tool.InvokableTool, cfg *ServerConfig) (*Tool, error) {
	info, err := invokable.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading tool info: %w", err)
	}

	t := &Tool{
		name:             info.Name,
		description:      info.Desc,
		requiresApproval: cfg.ToolRequiresApproval(info.Name),
		invokable:        invokable,
	}
	if info.ParamsOneOf != nil {
		js, err := info.ParamsOneOf.ToJSONSchema()
		if err != nil {
			return nil, fmt.Errorf("tool %s: converting input schema: %w", info.Name, err)
		}
		if js != nil {
			raw, err := jsonutil.Marshal(js)
			if err != nil {
				return nil, fmt.Errorf("tool %s: encoding input schema: %w", info.Name, err)
			}
			t.schema = raw
		}
	}
	return t, nil
}

func (t *Tool) Name() string                  { return t.name }
func (t *Tool) Description() string           { return t.description }
func (t *Tool) Schema() json.RawMessage       { return t.schema }
func (t *Tool) RequiresApproval() bool        { return t.requiresApproval }
func (t *Tool) RequiresPlatformContext() bool { return false }

func (t *Tool) Execute(ctx context.Context, input entity.ToolInput, _ entity.PlatformContext) (string, error) {
	return t.invokable.InvokableRun(ctx, input.JSON())
}
