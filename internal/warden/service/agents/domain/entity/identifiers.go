package entity

import (
	"strings"

	"github.com/google/uuid"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
)

// ConversationID identifies a Conversation. It is never empty.
type ConversationID string

// NewConversationID generates a random ConversationID.
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

// ParseConversationID validates a caller supplied identifier.
func ParseConversationID(s string) (ConversationID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errno.InvalidArgument("conversation id must not be empty")
	}
	return ConversationID(s), nil
}

func (id ConversationID) String() string { return string(id) }

// ToolCallID identifies a ToolCall within the conversation that tracks it.
type ToolCallID string

// NewToolCallID generates a random ToolCallID.
func NewToolCallID() ToolCallID {
	return ToolCallID("call_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:24])
}

// ParseToolCallID validates a caller supplied identifier.
func ParseToolCallID(s string) (ToolCallID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errno.InvalidArgument("tool call id must not be empty")
	}
	return ToolCallID(s), nil
}

func (id ToolCallID) String() string { return string(id) }
