package service

import (
	"context"
	"fmt"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg"
	"github.com/kiosk404/warden/pkg/logger"
)

// ApprovalOverride records a proposal whose runtime approval suggestion was
// overruled by the tool or the policy.
type ApprovalOverride struct {
	ToolCallID entity.ToolCallID `json:"tool_call_id"`
	ToolName   string            `json:"tool_name"`
	Suggested  bool              `json:"suggested"`
	Applied    bool              `json:"applied"`
	Reason     string            `json:"reason"`
}

// handleProposals tracks every tool call proposed by the runtime. Calls that
// need a decision stay PENDING; the others run synchronously. Unknown tools
// are recorded as failed and never run.
func (s *agentServiceImpl) handleProposals(
	ctx context.Context,
	conv *entity.Conversation,
	registry *ToolRegistry,
	proposals []entity.ToolCallView,
) ([]*entity.ToolCall, []ApprovalOverride, error) {
	var (
		calls     = make([]*entity.ToolCall, 0, len(proposals))
		pending   []*entity.ToolCall
		overrides []ApprovalOverride
		// pending calls are tracked only after the loop
		seen = make(map[entity.ToolCallID]struct{}, len(proposals))
	)

	for _, p := range proposals {
		id := p.ID
		_, batched := seen[id]
		if _, err := conv.ToolCall(id); id == "" || err == nil || batched {
			id = entity.NewToolCallID()
			logger.WarnX(pkg.ModuleName, "[AgentService] tool call id %q of %s reassigned to %s", p.ID, p.ToolName, id)
		}
		seen[id] = struct{}{}
		spec := entity.ToolCallSpec{
			ID:          id,
			ToolName:    p.ToolName,
			Input:       entity.NewToolInput(p.Input),
			Description: p.Description,
			Intent:      p.Intent,
		}

		tool, err := registry.Lookup(p.ToolName)
		if err != nil {
			tc := entity.NewToolCall(spec)
			if err := failUnstarted(conv, tc, err.Error()); err != nil {
				return nil, nil, err
			}
			logger.WarnX(pkg.ModuleName, "[AgentService] conversation %s: %v", conv.ID(), err)
			calls = append(calls, tc)
			continue
		}

		decision := s.policy.Decide(tool, p.RequiresApproval)
		spec.RequiresApproval = decision.RequiresApproval
		tc := entity.NewToolCall(spec)
		calls = append(calls, tc)
		if decision.Overridden {
			overrides = append(overrides, ApprovalOverride{
				ToolCallID: tc.ID(),
				ToolName:   tc.ToolName(),
				Suggested:  p.RequiresApproval,
				Applied:    decision.RequiresApproval,
				Reason:     decision.Reason,
			})
		}

		if decision.RequiresApproval {
			pending = append(pending, tc)
			continue
		}
		if err := conv.AutoApproveToolCall(tc); err != nil {
			return nil, nil, err
		}
		if err := s.runTool(ctx, conv, tool, tc); err != nil {
			return nil, nil, err
		}
	}

	if err := conv.RequestToolApproval(pending...); err != nil {
		return nil, nil, err
	}
	return calls, overrides, nil
}

// failUnstarted records a call that cannot run. Untracked calls are tracked
// and approved first so the failure goes through the normal transitions.
func failUnstarted(conv *entity.Conversation, tc *entity.ToolCall, reason string) error {
	if _, err := conv.ToolCall(tc.ID()); err != nil {
		if err := conv.AutoApproveToolCall(tc); err != nil {
			return err
		}
	}
	if err := conv.StartToolCall(tc.ID()); err != nil {
		return err
	}
	return conv.FailToolCall(tc.ID(), reason)
}

// runTool drives an APPROVED call through EXECUTING to COMPLETED or FAILED.
// Tool failures never abort the turn; only state machine violations do.
func (s *agentServiceImpl) runTool(ctx context.Context, conv *entity.Conversation, tool entity.Tool, tc *entity.ToolCall) error {
	if err := conv.StartToolCall(tc.ID()); err != nil {
		return err
	}

	if err := ValidateToolInput(tool, tc.Input()); err != nil {
		return conv.FailToolCall(tc.ID(), err.Error())
	}
	pc := conv.Context()
	if tool.RequiresPlatformContext() && pc.IsEmpty() {
		return conv.FailToolCall(tc.ID(), fmt.Sprintf("tool %s requires platform context", tool.Name()))
	}

	result, err := executeTool(ctx, tool, tc.Input(), pc)
	if err != nil {
		logger.WarnX(pkg.ModuleName, "[AgentService] tool %s (%s) failed: %v", tool.Name(), tc.ID(), err)
		return conv.FailToolCall(tc.ID(), err.Error())
	}
	logger.DebugX(pkg.ModuleName, "[AgentService] tool %s (%s) completed", tool.Name(), tc.ID())
	return conv.CompleteToolCall(tc.ID(), result)
}

func executeTool(ctx context.Context, tool entity.Tool, input entity.ToolInput, pc entity.PlatformContext) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorX(pkg.ModuleName, "[AgentService] tool %s panicked: %v", tool.Name(), r)
			err = fmt.Errorf("tool %s crashed: %v", tool.Name(), r)
		}
	}()
	return tool.Execute(ctx, input, pc.Clone())
}
