package bedrock

import (
	"fmt"
	"math"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/pkg/utils/json"
)

// toMessages converts the normalized history to Converse messages. Tool use
// and result blocks map one to one.
func toMessages(msgs []*entity.Message) []types.Message {
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		var content []types.ContentBlock
		for _, b := range m.Blocks() {
			switch b.Type {
			case entity.BlockText:
				content = append(content, &types.ContentBlockMemberText{Value: b.Text})
			case entity.BlockToolUse:
				content = append(content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(string(b.ToolUseID)),
						Name:      aws.String(b.ToolName),
						Input:     document.NewLazyDocument(b.Input.Map()),
					},
				})
			case entity.BlockToolResult:
				result := types.ToolResultBlock{
					ToolUseId: aws.String(string(b.ToolUseID)),
					Content: []types.ToolResultContentBlock{
						&types.ToolResultContentBlockMemberText{Value: b.Text},
					},
				}
				if b.IsError {
					result.Status = types.ToolResultStatusError
				}
				content = append(content, &types.ContentBlockMemberToolResult{Value: result})
			}
		}
		if len(content) == 0 {
			continue
		}

		role := types.ConversationRoleUser
		if m.Role() == entity.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		out = append(out, types.Message{Role: role, Content: content})
	}
	return out
}

func toSystem(prompt string) []types.SystemContentBlock {
	if prompt == "" {
		return nil
	}
	return []types.SystemContentBlock{
		&types.SystemContentBlockMemberText{Value: prompt},
	}
}

// toToolConfig converts tool definitions. A tool with a missing or invalid
// schema is offered as taking an empty object.
func toToolConfig(tools []entity.Tool) *types.ToolConfiguration {
	if len(tools) == 0 {
		return nil
	}
	specs := make([]types.Tool, len(tools))
	for i, tool := range tools {
		var schema any
		if err := json.Unmarshal(tool.Schema(), &schema); err != nil || schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		specs[i] = &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(tool.Name()),
				Description: aws.String(tool.Description()),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			},
		}
	}
	return &types.ToolConfiguration{Tools: specs}
}

func toInferenceConfig(maxTokens int, temperature, topP *float32) *types.InferenceConfiguration {
	if maxTokens <= 0 && temperature == nil && topP == nil {
		return nil
	}
	conf := &types.InferenceConfiguration{
		Temperature: temperature,
		TopP:        topP,
	}
	if maxTokens > 0 {
		conf.MaxTokens = aws.Int32(int32(min(maxTokens, math.MaxInt32)))
	}
	return conf
}

// fromMessage converts a Converse reply into a runtime response.
func fromMessage(msg types.Message) (*entity.AgentResponse, error) {
	var text strings.Builder
	resp := &entity.AgentResponse{ToolCalls: []entity.ToolCallView{}}
	for _, block := range msg.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			text.WriteString(b.Value)
		case *types.ContentBlockMemberToolUse:
			input, err := decodeInput(b.Value.Input)
			if err != nil {
				return nil, fmt.Errorf("bedrock: tool %s: decoding input: %w", aws.ToString(b.Value.Name), err)
			}
			resp.ToolCalls = append(resp.ToolCalls, entity.ToolCallView{
				ID:       entity.ToolCallID(aws.ToString(b.Value.ToolUseId)),
				ToolName: aws.ToString(b.Value.Name),
				Input:    input.Map(),
				Status:   entity.ToolCallPending,
			})
		}
	}
	resp.Text = text.String()
	return resp, nil
}

// decodeInput goes through JSON so numbers come back as float64 like any
// other decoded tool input.
func decodeInput(doc document.Interface) (entity.ToolInput, error) {
	if doc == nil {
		return entity.ToolInput{}, nil
	}
	raw, err := doc.MarshalSmithyDocument()
	if err != nil {
		return entity.ToolInput{}, err
	}
	return entity.ParseToolInput(string(raw))
}

func setUsage(resp *entity.AgentResponse, usage *types.TokenUsage) {
	if usage == nil {
		return
	}
	resp.SetMetadata(entity.MetaUsage, entity.TokenUsage{
		PromptTokens:     int(aws.ToInt32(usage.InputTokens)),
		CompletionTokens: int(aws.ToInt32(usage.OutputTokens)),
		TotalTokens:      int(aws.ToInt32(usage.TotalTokens)),
	})
}

func normalizeRequest(req *runtime.InvokeRequest, opts runtime.NormalizeOptions) ([]types.Message, []types.SystemContentBlock) {
	return toMessages(runtime.Normalize(req.Messages, opts)), toSystem(runtime.SystemPrompt(req.Messages, req.SystemPrompt))
}
