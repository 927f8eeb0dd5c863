package adapter

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/pkg/utils/json"
)

// ToSchemaMessages converts the request history to Eino messages. The
// history is normalized first and the system prompt, if any, leads.
func ToSchemaMessages(req *runtime.InvokeRequest, opts runtime.NormalizeOptions) []*schema.Message {
	delimiter := opts.Delimiter
	if delimiter == "" {
		delimiter = runtime.DefaultDelimiter
	}

	normalized := runtime.Normalize(req.Messages, opts)
	out := make([]*schema.Message, 0, len(normalized)+1)
	if prompt := runtime.SystemPrompt(req.Messages, req.SystemPrompt); prompt != "" {
		out = append(out, schema.SystemMessage(prompt))
	}

	for _, m := range normalized {
		switch m.Role() {
		case entity.RoleUser:
			out = append(out, userMessages(m, delimiter)...)
		case entity.RoleAssistant:
			out = append(out, assistantMessage(m, delimiter))
		}
	}
	return out
}

// userMessages splits a user message into one tool message per result block,
// followed by the user text.
func userMessages(m *entity.Message, delimiter string) []*schema.Message {
	var (
		out   []*schema.Message
		texts []string
	)
	for _, b := range m.Blocks() {
		switch b.Type {
		case entity.BlockToolResult:
			out = append(out, &schema.Message{
				Role:       schema.Tool,
				Content:    b.Text,
				ToolCallID: string(b.ToolUseID),
			})
		case entity.BlockText:
			texts = append(texts, b.Text)
		}
	}
	if len(texts) > 0 {
		out = append(out, schema.UserMessage(strings.Join(texts, delimiter)))
	}
	return out
}

func assistantMessage(m *entity.Message, delimiter string) *schema.Message {
	var texts []string
	msg := &schema.Message{Role: schema.Assistant}
	for _, b := range m.Blocks() {
		switch b.Type {
		case entity.BlockToolUse:
			msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
				ID:   string(b.ToolUseID),
				Type: "function",
				Function: schema.FunctionCall{
					Name:      b.ToolName,
					Arguments: b.Input.JSON(),
				},
			})
		case entity.BlockText:
			texts = append(texts, b.Text)
		}
	}
	msg.Content = strings.Join(texts, delimiter)
	return msg
}

// ToToolInfos describes the tools to the model. A tool without a schema is
// offered with no parameters.
func ToToolInfos(tools []entity.Tool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info := &schema.ToolInfo{
			Name: t.Name(),
			Desc: t.Description(),
		}
		raw := strings.TrimSpace(string(t.Schema()))
		if raw != "" && raw != "null" {
			js := &jsonschema.Schema{}
			if err := json.UnmarshalString(raw, js); err != nil {
				return nil, fmt.Errorf("tool %s: invalid input schema: %w", t.Name(), err)
			}
			info.ParamsOneOf = schema.NewParamsOneOfByJSONSchema(js)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// FromSchemaMessage converts a model reply into a runtime response whose
// tool calls are PENDING proposals.
func FromSchemaMessage(msg *schema.Message, modelName string) (*entity.AgentResponse, error) {
	resp := &entity.AgentResponse{
		Text:      msg.Content,
		ToolCalls: make([]entity.ToolCallView, 0, len(msg.ToolCalls)),
	}

	for _, tc := range msg.ToolCalls {
		input, err := entity.ParseToolInput(tc.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("tool call %s (%s): invalid arguments: %w", tc.ID, tc.Function.Name, err)
		}
		resp.ToolCalls = append(resp.ToolCalls, entity.ToolCallView{
			ID:       entity.ToolCallID(tc.ID),
			ToolName: tc.Function.Name,
			Input:    input.Map(),
			Status:   entity.ToolCallPending,
		})
	}

	if modelName != "" {
		resp.SetMetadata(entity.MetaModel, modelName)
	}
	if msg.ReasoningContent != "" {
		resp.SetMetadata(entity.MetaReasoning, msg.ReasoningContent)
	}
	if meta := msg.ResponseMeta; meta != nil {
		if meta.FinishReason != "" {
			resp.SetMetadata(entity.MetaStopReason, meta.FinishReason)
		}
		if u := meta.Usage; u != nil {
			resp.SetMetadata(entity.MetaUsage, entity.TokenUsage{
				PromptTokens:     u.PromptTokens,
				CompletionTokens: u.CompletionTokens,
				TotalTokens:      u.TotalTokens,
			})
		}
	}
	return resp, nil
}
