package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
)

type stubTool struct {
	name   string
	schema string
}

func (t stubTool) Name() string                  { return t.name }
func (t stubTool) Description() string           { return "stub " + t.name }
func (t stubTool) Schema() json.RawMessage       { return json.RawMessage(t.schema) }
func (t stubTool) RequiresApproval() bool        { return false }
func (t stubTool) RequiresPlatformContext() bool { return false }
func (t stubTool) Execute(context.Context, entity.ToolInput, entity.PlatformContext) (string, error) {
	return "", nil
}

type fakeChatModel struct {
	reply  *schema.Message
	chunks []*schema.Message
	err    error

	tools []*schema.ToolInfo
	input []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = in
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return schema.StreamReaderFromArray(f.chunks), nil
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	f.tools = tools
	return f, nil
}

// plainChatModel cannot bind tools.
type plainChatModel struct{}

func (plainChatModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage("plain", nil), nil
}

func (plainChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage("plain", nil)}), nil
}

var keepTools = runtime.NormalizeOptions{KeepToolBlocks: true, PairToolBlocks: true}

func history() []*entity.Message {
	input := entity.NewToolInput(map[string]any{"command": "ls"})
	return []*entity.Message{
		entity.NewSystemMessage("be terse"),
		entity.NewUserMessage("list files"),
		entity.NewMessage(entity.RoleAssistant, entity.NewMessageContent(
			entity.TextBlock("running ls"),
			entity.ToolUseBlock("call-1", "shell_exec", input),
		)),
		entity.NewMessage(entity.RoleUser, entity.NewMessageContent(
			entity.ToolResultBlock("call-1", "a.txt", false),
		)),
	}
}

func drain(t *testing.T, sr *schema.StreamReader[*entity.StreamEvent]) []*entity.StreamEvent {
	t.Helper()
	defer sr.Close()
	var events []*entity.StreamEvent
	for {
		ev, err := sr.Recv()
		if err != nil {
			return events
		}
		events = append(events, ev)
	}
}

func eventTypes(events []*entity.StreamEvent) []entity.StreamEventType {
	out := make([]entity.StreamEventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestToSchemaMessages(t *testing.T) {
	msgs := ToSchemaMessages(&runtime.InvokeRequest{
		Messages:     history(),
		SystemPrompt: "you are warden",
	}, keepTools)

	require.Len(t, msgs, 4)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "you are warden\n\nbe terse", msgs[0].Content)

	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "list files", msgs[1].Content)

	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "running ls", msgs[2].Content)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, "call-1", msgs[2].ToolCalls[0].ID)
	assert.Equal(t, "shell_exec", msgs[2].ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"command":"ls"}`, msgs[2].ToolCalls[0].Function.Arguments)

	assert.Equal(t, schema.Tool, msgs[3].Role)
	assert.Equal(t, "call-1", msgs[3].ToolCallID)
	assert.Equal(t, "a.txt", msgs[3].Content)
}

func TestToSchemaMessagesStripsToolBlocks(t *testing.T) {
	msgs := ToSchemaMessages(&runtime.InvokeRequest{Messages: history()}, runtime.NormalizeOptions{})

	require.Len(t, msgs, 3)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Empty(t, msgs[2].ToolCalls)
}

func TestToToolInfos(t *testing.T) {
	infos, err := ToToolInfos([]entity.Tool{
		stubTool{name: "shell_exec", schema: `{"type":"object","properties":{"command":{"type":"string"}},"required":["command"]}`},
		stubTool{name: "current_time"},
	})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "shell_exec", infos[0].Name)
	assert.NotNil(t, infos[0].ParamsOneOf)
	assert.Nil(t, infos[1].ParamsOneOf)

	_, err = ToToolInfos([]entity.Tool{stubTool{name: "broken", schema: `{"type":`}})
	assert.Error(t, err)
}

func TestFromSchemaMessage(t *testing.T) {
	resp, err := FromSchemaMessage(&schema.Message{
		Role:             schema.Assistant,
		Content:          "checking",
		ReasoningContent: "the user wants files",
		ToolCalls: []schema.ToolCall{{
			ID:       "call-9",
			Function: schema.FunctionCall{Name: "shell_exec", Arguments: `{"command":"ls"}`},
		}},
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: "tool_calls",
			Usage:        &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		},
	}, "gpt-4o")
	require.NoError(t, err)

	assert.Equal(t, "checking", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, entity.ToolCallID("call-9"), resp.ToolCalls[0].ID)
	assert.Equal(t, entity.ToolCallPending, resp.ToolCalls[0].Status)
	assert.Equal(t, map[string]any{"command": "ls"}, resp.ToolCalls[0].Input)
	assert.Equal(t, "gpt-4o", resp.Metadata[entity.MetaModel])
	assert.Equal(t, "tool_calls", resp.Metadata[entity.MetaStopReason])
	assert.Equal(t, "the user wants files", resp.Metadata[entity.MetaReasoning])
	assert.Equal(t, entity.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, resp.Metadata[entity.MetaUsage])

	_, err = FromSchemaMessage(&schema.Message{
		ToolCalls: []schema.ToolCall{{ID: "x", Function: schema.FunctionCall{Name: "t", Arguments: "not json"}}},
	}, "")
	assert.Error(t, err)
}

func TestChatModelAdapterInvoke(t *testing.T) {
	cm := &fakeChatModel{reply: schema.AssistantMessage("done", nil)}
	a := NewChatModelAdapter("openai", "gpt-4o", cm, keepTools)
	assert.Equal(t, "openai", a.Name())

	resp, err := a.Invoke(context.Background(), &runtime.InvokeRequest{
		Messages: history(),
		Tools:    []entity.Tool{stubTool{name: "shell_exec"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text)
	assert.Empty(t, resp.ToolCalls)
	require.Len(t, cm.tools, 1)
	assert.Equal(t, "shell_exec", cm.tools[0].Name)
	assert.Len(t, cm.input, 4)
}

func TestChatModelAdapterErrors(t *testing.T) {
	ctx := context.Background()

	failing := NewChatModelAdapter("openai", "gpt-4o", &fakeChatModel{err: errors.New("boom")}, keepTools)
	_, err := failing.Invoke(ctx, &runtime.InvokeRequest{Messages: history()})
	assert.ErrorContains(t, err, "boom")
	_, err = failing.InvokeStream(ctx, &runtime.InvokeRequest{Messages: history()})
	assert.ErrorContains(t, err, "boom")

	plain := NewChatModelAdapter("plain", "m", plainChatModel{}, keepTools)
	_, err = plain.Invoke(ctx, &runtime.InvokeRequest{
		Messages: history(),
		Tools:    []entity.Tool{stubTool{name: "shell_exec"}},
	})
	assert.ErrorContains(t, err, "does not support tool calling")

	_, err = plain.Invoke(ctx, nil)
	assert.Error(t, err)
}

func TestChatModelAdapterStream(t *testing.T) {
	cm := &fakeChatModel{chunks: []*schema.Message{
		{Role: schema.Assistant, ReasoningContent: "thinking"},
		{Role: schema.Assistant, Content: "Hello"},
		{Role: schema.Assistant, Content: " world"},
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{
			ID:       "call-1",
			Function: schema.FunctionCall{Name: "shell_exec", Arguments: `{"command":"ls"}`},
		}}},
	}}
	a := NewChatModelAdapter("openai", "gpt-4o", cm, keepTools)

	sr, err := a.InvokeStream(context.Background(), &runtime.InvokeRequest{Messages: history()})
	require.NoError(t, err)
	events := drain(t, sr)

	assert.Equal(t, []entity.StreamEventType{
		entity.StreamMessageStart,
		entity.StreamReasoningStarted,
		entity.StreamReasoningStep,
		entity.StreamReasoningCompleted,
		entity.StreamTextDelta,
		entity.StreamTextDelta,
		entity.StreamToolUseStart,
		entity.StreamToolUseDelta,
		entity.StreamToolUseEnd,
		entity.StreamMessageEnd,
	}, eventTypes(events))

	end := events[len(events)-1].Response
	require.NotNil(t, end)
	assert.Equal(t, "Hello world", end.Text)
	require.Len(t, end.ToolCalls, 1)
	assert.Equal(t, "shell_exec", end.ToolCalls[0].ToolName)
	assert.Equal(t, "thinking", end.Metadata[entity.MetaReasoning])
}

func TestChatModelAdapterStreamCollects(t *testing.T) {
	cm := &fakeChatModel{chunks: []*schema.Message{
		{Role: schema.Assistant, Content: "a"},
		{Role: schema.Assistant, Content: "b"},
	}}
	a := NewChatModelAdapter("openai", "gpt-4o", cm, keepTools)

	sr, err := a.InvokeStream(context.Background(), &runtime.InvokeRequest{Messages: history()})
	require.NoError(t, err)
	resp, err := runtime.CollectStream(sr)
	require.NoError(t, err)
	assert.Equal(t, "ab", resp.Text)
}
