package echo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
)

// ToolCommand is the prefix of a user message asking the echo runtime to
// propose a tool call: "/tool <name> [json input]".
const ToolCommand = "/tool"

var _ runtime.Adapter = (*Adapter)(nil)

// Adapter answers deterministically from the last user message:
//
//   - "/tool <name> [json]" proposes one call of the named tool;
//   - tool results are summarized, one line per result;
//   - anything else is echoed back.
type Adapter struct {
	model string
	opts  runtime.NormalizeOptions
}

func NewAdapter(model string, opts runtime.NormalizeOptions) *Adapter {
	return &Adapter{model: model, opts: opts}
}

func (a *Adapter) Name() string { return "echo" }

func (a *Adapter) Invoke(ctx context.Context, req *runtime.InvokeRequest) (*entity.AgentResponse, error) {
	if req == nil {
		return nil, errors.New("nil invoke request")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &entity.AgentResponse{ToolCalls: []entity.ToolCallView{}}
	resp.SetMetadata(entity.MetaModel, a.model)

	msgs := runtime.Normalize(req.Messages, a.opts)
	if len(msgs) == 0 {
		resp.Text = "nothing to echo"
		return resp, nil
	}
	last := msgs[len(msgs)-1]
	if last.Role() != entity.RoleUser {
		resp.Text = "nothing to echo"
		return resp, nil
	}

	if summary := summarizeResults(last); summary != "" {
		resp.Text = summary
		return resp, nil
	}

	text := strings.TrimSpace(last.Text())
	if rest, ok := strings.CutPrefix(text, ToolCommand+" "); ok {
		call, err := parseToolCommand(rest)
		if err != nil {
			resp.Text = err.Error()
			return resp, nil
		}
		resp.Text = fmt.Sprintf("calling %s", call.ToolName)
		resp.ToolCalls = append(resp.ToolCalls, call)
		return resp, nil
	}

	resp.Text = "echo: " + text
	return resp, nil
}

// InvokeStream splits the reply text into word deltas.
func (a *Adapter) InvokeStream(ctx context.Context, req *runtime.InvokeRequest) (*schema.StreamReader[*entity.StreamEvent], error) {
	resp, err := a.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	events := []*entity.StreamEvent{entity.MessageStartEvent()}
	for _, word := range strings.SplitAfter(resp.Text, " ") {
		if word != "" {
			events = append(events, entity.TextDeltaEvent(word))
		}
	}
	for _, tc := range resp.ToolCalls {
		events = append(events,
			entity.ToolUseStartEvent(tc.ID, tc.ToolName),
			entity.ToolUseDeltaEvent(tc.ID, entity.NewToolInput(tc.Input).JSON()),
			entity.ToolUseEndEvent(tc.ID),
		)
	}
	events = append(events, entity.MessageEndEvent(resp))
	return schema.StreamReaderFromArray(events), nil
}

func summarizeResults(m *entity.Message) string {
	var lines []string
	for _, b := range m.Blocks() {
		if b.Type != entity.BlockToolResult {
			continue
		}
		if b.IsError {
			lines = append(lines, fmt.Sprintf("tool call %s failed: %s", b.ToolUseID, b.Text))
			continue
		}
		lines = append(lines, fmt.Sprintf("tool call %s returned: %s", b.ToolUseID, b.Text))
	}
	return strings.Join(lines, "\n")
}

func parseToolCommand(s string) (entity.ToolCallView, error) {
	name, raw, _ := strings.Cut(strings.TrimSpace(s), " ")
	if name == "" {
		return entity.ToolCallView{}, fmt.Errorf("usage: %s <name> [json input]", ToolCommand)
	}
	input, err := entity.ParseToolInput(raw)
	if err != nil {
		return entity.ToolCallView{}, fmt.Errorf("invalid input for %s: %v", name, err)
	}
	return entity.ToolCallView{
		ID:       entity.NewToolCallID(),
		ToolName: name,
		Input:    input.Map(),
		Status:   entity.ToolCallPending,
	}, nil
}
