package entity

import (
	"time"

	"github.com/google/uuid"
)

// Domain event names.
const (
	EventConversationStarted = "conversation.started"
	EventApprovalRequested   = "tool_call.approval_requested"
	EventToolCallApproved    = "tool_call.approved"
	EventToolCallRejected    = "tool_call.rejected"
	EventToolExecuted        = "tool_call.executed"
	EventToolExecutionFailed = "tool_call.failed"
)

// DomainEvent is an immutable fact recorded by a Conversation command.
// Events accumulate on the aggregate until a service drains them with
// ClearEvents and publishes them after persisting.
type DomainEvent interface {
	EventID() string
	EventName() string
	AggregateID() ConversationID
	OccurredAt() time.Time
}

// EventMeta carries the fields shared by every domain event.
type EventMeta struct {
	ID             string         `json:"event_id"`
	ConversationID ConversationID `json:"conversation_id"`
	At             time.Time      `json:"occurred_at"`
}

func newEventMeta(id ConversationID) EventMeta {
	return EventMeta{ID: uuid.New().String(), ConversationID: id, At: time.Now().UTC()}
}

func (m EventMeta) EventID() string             { return m.ID }
func (m EventMeta) AggregateID() ConversationID { return m.ConversationID }
func (m EventMeta) OccurredAt() time.Time       { return m.At }

type ConversationStarted struct {
	EventMeta
}

func (ConversationStarted) EventName() string { return EventConversationStarted }

// ApprovalRequested is recorded when tool calls are parked for a human decision.
type ApprovalRequested struct {
	EventMeta
	ToolCalls []ToolCallView `json:"tool_calls"`
}

func (ApprovalRequested) EventName() string { return EventApprovalRequested }

type ToolCallApprovedEvent struct {
	EventMeta
	ToolCallID ToolCallID `json:"tool_call_id"`
	ToolName   string     `json:"tool_name"`
	// Auto is true when no human decision was involved.
	Auto bool `json:"auto"`
}

func (ToolCallApprovedEvent) EventName() string { return EventToolCallApproved }

type ToolCallRejectedEvent struct {
	EventMeta
	ToolCallID ToolCallID `json:"tool_call_id"`
	ToolName   string     `json:"tool_name"`
	Reason     string     `json:"reason,omitempty"`
}

func (ToolCallRejectedEvent) EventName() string { return EventToolCallRejected }

type ToolExecuted struct {
	EventMeta
	ToolCallID ToolCallID `json:"tool_call_id"`
	ToolName   string     `json:"tool_name"`
	Result     string     `json:"result"`
}

func (ToolExecuted) EventName() string { return EventToolExecuted }

type ToolExecutionFailed struct {
	EventMeta
	ToolCallID ToolCallID `json:"tool_call_id"`
	ToolName   string     `json:"tool_name"`
	Error      string     `json:"error"`
}

func (ToolExecutionFailed) EventName() string { return EventToolExecutionFailed }
