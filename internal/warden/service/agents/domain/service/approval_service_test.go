package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
)

// pendingConversation runs one turn proposing two calls that need approval.
func pendingConversation(t *testing.T) (*fixture, entity.ConversationID) {
	t.Helper()
	tool := &fakeTool{name: "dangerous", approval: true}
	f := newFixture(nil, &entity.AgentResponse{ToolCalls: []entity.ToolCallView{
		proposal("call_1", "dangerous", map[string]any{"n": 1}, true),
		proposal("call_2", "dangerous", map[string]any{"n": 2}, true),
	}})
	resp, err := f.agents.Execute(context.Background(), &entity.AgentRequest{Content: "hi", Tools: []entity.Tool{tool}})
	require.NoError(t, err)
	require.True(t, resp.HasPendingApprovals)
	return f, resp.ConversationID
}

func TestApprovalExecuteMixedDecisions(t *testing.T) {
	f, id := pendingConversation(t)
	ctx := context.Background()

	resp, err := f.approvals.Execute(ctx, &entity.ApprovalRequest{
		ConversationID: id,
		Approvals: []entity.ApprovalDecision{
			{ToolCallID: "call_1", Approved: true},
			{ToolCallID: "call_2", Approved: false, RejectionReason: "too risky"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, id, resp.ConversationID)
	assert.False(t, resp.HasPendingApprovals)
	assert.True(t, resp.IsComplete)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, entity.ToolCallApproved, resp.ToolCalls[0].Status)
	assert.Equal(t, entity.ToolCallRejected, resp.ToolCalls[1].Status)
	assert.Equal(t, "too risky", resp.ToolCalls[1].RejectionReason)

	conv := f.stored(id)
	assert.Len(t, conv.ApprovedToolCalls(), 1)
	assert.Empty(t, conv.PendingToolCalls())

	names := f.publisher.names()
	assert.Contains(t, names, entity.EventToolCallApproved)
	assert.Contains(t, names, entity.EventToolCallRejected)
}

func TestApprovalExecutePartialDecisionKeepsBlocking(t *testing.T) {
	f, id := pendingConversation(t)

	resp, err := f.approvals.Execute(context.Background(), &entity.ApprovalRequest{
		ConversationID: id,
		Approvals:      []entity.ApprovalDecision{{ToolCallID: "call_1", Approved: true}},
	})
	require.NoError(t, err)
	assert.True(t, resp.HasPendingApprovals)
	assert.False(t, resp.IsComplete)

	_, err = f.agents.Execute(context.Background(), &entity.AgentRequest{Content: "next", ConversationID: id})
	require.ErrorIs(t, err, errno.ErrConversationBlocked)
}

func TestApprovalExecuteAbortsWithoutPersisting(t *testing.T) {
	tests := []struct {
		name      string
		approvals []entity.ApprovalDecision
		wantErr   error
	}{
		{
			name: "unknown tool call",
			approvals: []entity.ApprovalDecision{
				{ToolCallID: "call_1", Approved: true},
				{ToolCallID: "call_404", Approved: true},
			},
			wantErr: errno.ErrToolCallNotFound,
		},
		{
			name: "decided twice",
			approvals: []entity.ApprovalDecision{
				{ToolCallID: "call_1", Approved: true},
				{ToolCallID: "call_1", Approved: false},
			},
			wantErr: errno.ErrInvalidStateTransition,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, id := pendingConversation(t)
			_, err := f.approvals.Execute(context.Background(), &entity.ApprovalRequest{ConversationID: id, Approvals: tt.approvals})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, f.stored(id).PendingToolCalls(), 2)
		})
	}
}

func TestApprovalExecuteMissingConversation(t *testing.T) {
	f := newFixture(nil)
	_, err := f.approvals.Execute(context.Background(), &entity.ApprovalRequest{
		ConversationID: "missing",
		Approvals:      []entity.ApprovalDecision{{ToolCallID: "call_1", Approved: true}},
	})
	require.ErrorIs(t, err, errno.ErrConversationNotFound)

	_, err = f.approvals.Execute(context.Background(), &entity.ApprovalRequest{})
	require.ErrorIs(t, err, errno.ErrInvalidArgument)
}

func TestApproveAllAndRejectAll(t *testing.T) {
	ctx := context.Background()

	f, id := pendingConversation(t)
	resp, err := f.approvals.ApproveAll(ctx, id)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)
	for _, v := range resp.ToolCalls {
		assert.Equal(t, entity.ToolCallApproved, v.Status)
	}
	assert.True(t, resp.IsComplete)

	f, id = pendingConversation(t)
	resp, err = f.approvals.RejectAll(ctx, id, "not today")
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)
	for _, v := range resp.ToolCalls {
		assert.Equal(t, entity.ToolCallRejected, v.Status)
		assert.Equal(t, "not today", v.RejectionReason)
	}

	// nothing left to decide
	resp, err = f.approvals.ApproveAll(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, resp.ToolCalls)
	assert.True(t, resp.IsComplete)
}

func TestListPending(t *testing.T) {
	f, id := pendingConversation(t)
	views, err := f.approvals.ListPending(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, entity.ToolCallID("call_1"), views[0].ID)
	assert.Equal(t, float64(1), views[0].Input["n"])

	_, err = f.approvals.ListPending(context.Background(), "missing")
	require.ErrorIs(t, err, errno.ErrConversationNotFound)
}
