package service

import (
	"context"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
)

// ApprovalService applies human decisions to pending tool calls.
//
// Approving never runs a tool: execution happens when the caller resumes
// the conversation through AgentService.Resume.
type ApprovalService interface {
	// Execute applies the decisions in order. An unknown tool call id or an
	// illegal transition aborts the whole request and nothing is persisted.
	Execute(ctx context.Context, req *entity.ApprovalRequest) (*entity.AgentResponse, error)

	ApproveAll(ctx context.Context, id entity.ConversationID) (*entity.AgentResponse, error)
	RejectAll(ctx context.Context, id entity.ConversationID, reason string) (*entity.AgentResponse, error)

	ListPending(ctx context.Context, id entity.ConversationID) ([]entity.ToolCallView, error)
}
