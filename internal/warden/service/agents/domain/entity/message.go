package entity

import (
	"time"

	"github.com/kiosk404/warden/pkg/utils/json"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole accepts the three conversational roles.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleSystem, RoleUser, RoleAssistant:
		return r, true
	default:
		return "", false
	}
}

// Message is a single immutable entry of a Conversation.
type Message struct {
	role      Role
	content   MessageContent
	createdAt time.Time
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, content MessageContent) *Message {
	return &Message{role: role, content: content, createdAt: time.Now().UTC()}
}

func NewUserMessage(text string) *Message { return NewMessage(RoleUser, TextContent(text)) }

func NewAssistantMessage(text string) *Message { return NewMessage(RoleAssistant, TextContent(text)) }

func NewSystemMessage(text string) *Message { return NewMessage(RoleSystem, TextContent(text)) }

func (m *Message) Role() Role { return m.role }

func (m *Message) Content() MessageContent { return m.content }

func (m *Message) CreatedAt() time.Time { return m.createdAt }

// Text concatenates the TEXT blocks of the message.
func (m *Message) Text() string { return m.content.Text() }

func (m *Message) Blocks() []ContentBlock { return m.content.Blocks() }

// WithContent returns a copy of the message carrying different content.
func (m *Message) WithContent(c MessageContent) *Message {
	return &Message{role: m.role, content: c, createdAt: m.createdAt}
}

type messageJSON struct {
	Role      Role           `json:"role"`
	Content   MessageContent `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

func (m *Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{Role: m.role, Content: m.content, CreatedAt: m.createdAt})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var dto messageJSON
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	m.role, m.content, m.createdAt = dto.Role, dto.Content, dto.CreatedAt
	return nil
}
