package v1

import (
	"time"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
)

// ExecuteRequest is the body of POST /v1/conversations.
type ExecuteRequest struct {
	// ConversationID continues a conversation. A new one is created when empty.
	ConversationID string `json:"conversation_id,omitempty"`
	// Content is the new user message.
	Content string `json:"content"`
	// Messages, when set, replaces the stored history.
	Messages []entity.HistoryMessage `json:"messages,omitempty"`
	// Context is the platform context forwarded to tools.
	Context map[string]any `json:"context,omitempty"`
	// Tools selects catalogue tools by name. Empty offers the whole catalogue.
	Tools        []string `json:"tools,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	// Stream switches the reply to server-sent events.
	Stream bool `json:"stream,omitempty"`
}

// ResumeRequest is the body of POST /v1/conversations/:id/resume.
type ResumeRequest struct {
	Context      map[string]any `json:"context,omitempty"`
	Tools        []string       `json:"tools,omitempty"`
	SystemPrompt string         `json:"system_prompt,omitempty"`
}

// ApprovalsRequest is the body of POST /v1/conversations/:id/approvals.
type ApprovalsRequest struct {
	Approvals []entity.ApprovalDecision `json:"approvals" binding:"required"`
}

// RejectAllRequest is the body of POST /v1/conversations/:id/approvals/reject-all.
type RejectAllRequest struct {
	Reason string `json:"reason,omitempty"`
}

// MessageResponse is one message of a conversation.
type MessageResponse struct {
	Role      entity.Role           `json:"role"`
	Text      string                `json:"text"`
	Blocks    []entity.ContentBlock `json:"blocks"`
	CreatedAt string                `json:"created_at"`
}

// ConversationResponse is the read model of a conversation.
type ConversationResponse struct {
	ID                  entity.ConversationID  `json:"id"`
	Messages            []MessageResponse      `json:"messages"`
	ToolCalls           []entity.ToolCallView  `json:"tool_calls"`
	HasPendingApprovals bool                   `json:"has_pending_approvals"`
	Context             entity.PlatformContext `json:"context,omitempty"`
	CreatedAt           string                 `json:"created_at"`
	UpdatedAt           string                 `json:"updated_at"`
}

// ProvidersResponse lists the runtime providers.
type ProvidersResponse struct {
	Default   string   `json:"default"`
	Providers []string `json:"providers"`
}

func conversationResponse(conv *entity.Conversation) ConversationResponse {
	msgs := conv.Messages()
	out := ConversationResponse{
		ID:                  conv.ID(),
		Messages:            make([]MessageResponse, 0, len(msgs)),
		ToolCalls:           entity.ToolCallViews(conv.AllToolCalls()),
		HasPendingApprovals: conv.HasPendingApprovals(),
		Context:             conv.Context(),
		CreatedAt:           FormatTime(conv.CreatedAt()),
		UpdatedAt:           FormatTime(conv.UpdatedAt()),
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, MessageResponse{
			Role:      m.Role(),
			Text:      m.Text(),
			Blocks:    m.Blocks(),
			CreatedAt: FormatTime(m.CreatedAt()),
		})
	}
	return out
}

// FormatTime formats a time.Time as RFC3339 string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
