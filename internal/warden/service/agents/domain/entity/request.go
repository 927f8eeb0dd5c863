package entity

// HistoryMessage is one entry of externally supplied conversation history.
type HistoryMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AgentRequest is the input of a conversational turn.
type AgentRequest struct {
	// Content is the new user message.
	Content string
	// Messages, when set, replaces the stored history: a fresh conversation
	// is built from it before Content is appended.
	Messages []HistoryMessage
	// ConversationID selects the conversation; a new one is created when empty.
	ConversationID ConversationID
	Context        PlatformContext
	Tools          []Tool
	SystemPrompt   string
	Stream         bool
}

// ResumeRequest continues a conversation after its approvals were decided.
type ResumeRequest struct {
	ConversationID ConversationID
	Context        PlatformContext
	Tools          []Tool
	SystemPrompt   string
}

// ApprovalDecision is a human decision for one pending tool call.
type ApprovalDecision struct {
	ToolCallID      ToolCallID `json:"tool_call_id"`
	Approved        bool       `json:"approved"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// ApprovalRequest carries the decisions for one conversation.
type ApprovalRequest struct {
	ConversationID ConversationID     `json:"conversation_id"`
	Approvals      []ApprovalDecision `json:"approvals"`
}

// AgentResponse is the outcome of a turn or of an approval request.
//
// Runtime adapters return the same shape with ConversationID left empty and
// ToolCalls holding the proposed calls in PENDING state.
type AgentResponse struct {
	ConversationID      ConversationID `json:"conversation_id"`
	Text                string         `json:"text,omitempty"`
	ToolCalls           []ToolCallView `json:"tool_calls"`
	HasPendingApprovals bool           `json:"has_pending_approvals"`
	IsComplete          bool           `json:"is_complete"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// SetMetadata lazily allocates the metadata map.
func (r *AgentResponse) SetMetadata(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// TokenUsage tracks token consumption reported by a runtime.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Metadata keys set by runtimes and services.
const (
	MetaUsage             = "usage"
	MetaStopReason        = "stop_reason"
	MetaModel             = "model"
	MetaApprovalOverrides = "approval_overrides"
	MetaReasoning         = "reasoning"
)
