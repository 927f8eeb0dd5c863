package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
)

type fakeConverse struct {
	out *bedrockruntime.ConverseOutput
	err error

	input *bedrockruntime.ConverseInput
}

func (f *fakeConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = in
	return f.out, f.err
}

func (f *fakeConverse) ConverseStream(context.Context, *bedrockruntime.ConverseStreamInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error) {
	return nil, errors.New("streaming unavailable")
}

type shellTool struct{}

func (shellTool) Name() string        { return "shell_exec" }
func (shellTool) Description() string { return "run a command" }
func (shellTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"command":{"type":"string"}}}`)
}
func (shellTool) RequiresApproval() bool        { return true }
func (shellTool) RequiresPlatformContext() bool { return false }
func (shellTool) Execute(context.Context, entity.ToolInput, entity.PlatformContext) (string, error) {
	return "", nil
}

var pairOpts = runtime.NormalizeOptions{KeepToolBlocks: true, PairToolBlocks: true}

func conversation() []*entity.Message {
	return []*entity.Message{
		entity.NewSystemMessage("be careful"),
		entity.NewUserMessage("clean up"),
		entity.NewMessage(entity.RoleAssistant, entity.NewMessageContent(
			entity.ToolUseBlock("tu-1", "shell_exec", entity.NewToolInput(map[string]any{"command": "rm -rf /tmp/x"})),
		)),
		entity.NewMessage(entity.RoleUser, entity.NewMessageContent(
			entity.ToolResultBlock("tu-1", "tool call rejected by user: no", true),
		)),
	}
}

func TestToMessages(t *testing.T) {
	msgs := toMessages(runtime.Normalize(conversation(), pairOpts))
	require.Len(t, msgs, 3)

	assert.Equal(t, types.ConversationRoleUser, msgs[0].Role)
	assert.Equal(t, types.ConversationRoleAssistant, msgs[1].Role)
	use, ok := msgs[1].Content[0].(*types.ContentBlockMemberToolUse)
	require.True(t, ok)
	assert.Equal(t, "tu-1", aws.ToString(use.Value.ToolUseId))
	assert.Equal(t, "shell_exec", aws.ToString(use.Value.Name))

	result, ok := msgs[2].Content[0].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, types.ToolResultStatusError, result.Value.Status)
}

func TestToToolConfig(t *testing.T) {
	assert.Nil(t, toToolConfig(nil))

	conf := toToolConfig([]entity.Tool{shellTool{}})
	require.Len(t, conf.Tools, 1)
	spec, ok := conf.Tools[0].(*types.ToolMemberToolSpec)
	require.True(t, ok)
	assert.Equal(t, "shell_exec", aws.ToString(spec.Value.Name))
}

func TestAdapterInvoke(t *testing.T) {
	fake := &fakeConverse{out: &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role: types.ConversationRoleAssistant,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: "I will list it"},
				&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String("tu-2"),
					Name:      aws.String("shell_exec"),
					Input:     document.NewLazyDocument(map[string]any{"command": "ls", "depth": 2}),
				}},
			},
		}},
		StopReason: types.StopReasonToolUse,
		Usage: &types.TokenUsage{
			InputTokens:  aws.Int32(12),
			OutputTokens: aws.Int32(8),
			TotalTokens:  aws.Int32(20),
		},
	}}
	a := NewAdapter(fake, &options.ProviderConfig{Model: "claude", MaxTokens: 1024}, pairOpts)
	assert.Equal(t, Name, a.Name())

	resp, err := a.Invoke(context.Background(), &runtime.InvokeRequest{
		Messages:     conversation(),
		Tools:        []entity.Tool{shellTool{}},
		SystemPrompt: "you are warden",
	})
	require.NoError(t, err)

	assert.Equal(t, "I will list it", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, entity.ToolCallID("tu-2"), resp.ToolCalls[0].ID)
	assert.Equal(t, map[string]any{"command": "ls", "depth": float64(2)}, resp.ToolCalls[0].Input)
	assert.Equal(t, "tool_use", resp.Metadata[entity.MetaStopReason])
	assert.Equal(t, entity.TokenUsage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20}, resp.Metadata[entity.MetaUsage])

	require.NotNil(t, fake.input)
	assert.Equal(t, "claude", aws.ToString(fake.input.ModelId))
	assert.Len(t, fake.input.Messages, 3)
	require.Len(t, fake.input.System, 1)
	sys, ok := fake.input.System[0].(*types.SystemContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "you are warden\n\nbe careful", sys.Value)
	assert.Equal(t, int32(1024), aws.ToInt32(fake.input.InferenceConfig.MaxTokens))
	assert.NotNil(t, fake.input.ToolConfig)
}

func TestAdapterErrors(t *testing.T) {
	ctx := context.Background()
	req := &runtime.InvokeRequest{Messages: conversation()}

	failing := NewAdapter(&fakeConverse{err: errors.New("throttled")}, &options.ProviderConfig{Model: "m"}, pairOpts)
	_, err := failing.Invoke(ctx, req)
	assert.ErrorContains(t, err, "throttled")

	_, err = failing.InvokeStream(ctx, req)
	assert.ErrorContains(t, err, "streaming unavailable")

	empty := NewAdapter(&fakeConverse{out: &bedrockruntime.ConverseOutput{}}, &options.ProviderConfig{Model: "m"}, pairOpts)
	_, err = empty.Invoke(ctx, req)
	assert.ErrorContains(t, err, "no message")
}

func TestPluginRequiresRegion(t *testing.T) {
	p := New().(*Plugin)
	_, err := p.BuildAdapter(context.Background(), &options.ProviderConfig{Model: "m"}, pairOpts)
	assert.ErrorContains(t, err, "region")

	_, err = p.BuildAdapter(context.Background(), &options.ProviderConfig{Region: "us-east-1"}, pairOpts)
	assert.ErrorContains(t, err, "model")
}
