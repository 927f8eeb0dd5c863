package service

import (
	"context"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/repo"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/logger"
)

type approvalServiceImpl struct {
	repo      repo.ConversationRepository
	publisher EventPublisher
}

func NewApprovalService(repo repo.ConversationRepository, publisher EventPublisher) ApprovalService {
	return &approvalServiceImpl{repo: repo, publisher: publisher}
}

func (s *approvalServiceImpl) Execute(ctx context.Context, req *entity.ApprovalRequest) (*entity.AgentResponse, error) {
	if req == nil || req.ConversationID == "" {
		return nil, errno.InvalidArgument("conversation_id is required")
	}
	conv, err := s.repo.Get(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	decided := make([]*entity.ToolCall, 0, len(req.Approvals))
	for _, d := range req.Approvals {
		if d.Approved {
			err = conv.ApproveToolCall(d.ToolCallID)
		} else {
			err = conv.RejectToolCall(d.ToolCallID, d.RejectionReason)
		}
		if err != nil {
			logger.WarnX(pkg.ModuleName, "[ApprovalService] conversation %s: decision on %s rejected: %v", conv.ID(), d.ToolCallID, err)
			return nil, err
		}
		tc, _ := conv.ToolCall(d.ToolCallID)
		decided = append(decided, tc)
	}

	if len(decided) > 0 {
		if err := persist(ctx, s.repo, s.publisher, conv); err != nil {
			return nil, err
		}
		logger.InfoX(pkg.ModuleName, "[ApprovalService] conversation %s: %d decision(s) applied, pending=%v",
			conv.ID(), len(decided), conv.HasPendingApprovals())
	}
	return stateResponse(conv, decided), nil
}

func (s *approvalServiceImpl) ApproveAll(ctx context.Context, id entity.ConversationID) (*entity.AgentResponse, error) {
	return s.decideAll(ctx, id, true, "")
}

func (s *approvalServiceImpl) RejectAll(ctx context.Context, id entity.ConversationID, reason string) (*entity.AgentResponse, error) {
	return s.decideAll(ctx, id, false, reason)
}

func (s *approvalServiceImpl) decideAll(ctx context.Context, id entity.ConversationID, approved bool, reason string) (*entity.AgentResponse, error) {
	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	pending := conv.PendingToolCalls()
	decisions := make([]entity.ApprovalDecision, 0, len(pending))
	for _, tc := range pending {
		decisions = append(decisions, entity.ApprovalDecision{
			ToolCallID:      tc.ID(),
			Approved:        approved,
			RejectionReason: reason,
		})
	}
	return s.Execute(ctx, &entity.ApprovalRequest{ConversationID: id, Approvals: decisions})
}

func (s *approvalServiceImpl) ListPending(ctx context.Context, id entity.ConversationID) ([]entity.ToolCallView, error) {
	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return entity.ToolCallViews(conv.PendingToolCalls()), nil
}
