package service

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
)

// AgentService runs conversational turns against a runtime adapter.
//
// It provides:
//   - Execute / ExecuteStream: one user turn, blocking or streamed
//   - Resume: continue after approvals were decided
//   - Conversation lookup and deletion
//
// Callers serialize operations on the same conversation id.
type AgentService interface {
	// Execute appends the user message, invokes the runtime once and handles
	// the proposed tool calls. It fails with errno.ErrConversationBlocked while
	// approvals are pending, and with errno.ErrRuntimeInvocation when the
	// backend fails, in which case nothing is persisted.
	Execute(ctx context.Context, req *entity.AgentRequest) (*entity.AgentResponse, error)

	// ExecuteStream performs the same turn as Execute. Resolution errors are
	// returned directly; everything after is reported on the stream, which
	// ends with exactly one message_end or error event.
	// Events are consumed via sr.Recv() until io.EOF is received.
	ExecuteStream(ctx context.Context, req *entity.AgentRequest) (*schema.StreamReader[*entity.StreamEvent], error)

	// Resume executes approved tool calls, reports every settled result to the
	// runtime and handles its follow-up reply.
	Resume(ctx context.Context, req *entity.ResumeRequest) (*entity.AgentResponse, error)

	GetConversation(ctx context.Context, id entity.ConversationID) (*entity.Conversation, error)
	ListConversations(ctx context.Context, limit int) ([]entity.ConversationID, error)
	DeleteConversation(ctx context.Context, id entity.ConversationID) error
}
