package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/repo"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/logger"
	"github.com/kiosk404/warden/pkg/utils/safego"
)

// DefaultStreamBuffer is the capacity of the pipe between the stream
// producer and its consumer.
const DefaultStreamBuffer = 32

// AgentServiceComponents are the collaborators of the agent service.
type AgentServiceComponents struct {
	Repo      repo.ConversationRepository
	Runtime   runtime.Adapter
	Publisher EventPublisher
	Policy    *ApprovalPolicy

	StreamBuffer int
}

type agentServiceImpl struct {
	repo         repo.ConversationRepository
	runtime      runtime.Adapter
	publisher    EventPublisher
	policy       *ApprovalPolicy
	streamBuffer int
}

func NewAgentService(c AgentServiceComponents) AgentService {
	if c.StreamBuffer <= 0 {
		c.StreamBuffer = DefaultStreamBuffer
	}
	return &agentServiceImpl{
		repo:         c.Repo,
		runtime:      c.Runtime,
		publisher:    c.Publisher,
		policy:       c.Policy,
		streamBuffer: c.StreamBuffer,
	}
}

func (s *agentServiceImpl) Execute(ctx context.Context, req *entity.AgentRequest) (*entity.AgentResponse, error) {
	conv, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	registry := NewToolRegistry(req.Tools...)

	out, err := s.runtime.Invoke(ctx, s.invokeRequest(conv, registry, req.SystemPrompt))
	if err != nil {
		logger.WarnX(pkg.ModuleName, "[AgentService] runtime %s failed for conversation %s: %v", s.runtime.Name(), conv.ID(), err)
		return nil, errno.RuntimeInvocation(err)
	}
	return s.completeTurn(ctx, conv, registry, out, nil)
}

func (s *agentServiceImpl) ExecuteStream(ctx context.Context, req *entity.AgentRequest) (*schema.StreamReader[*entity.StreamEvent], error) {
	conv, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	registry := NewToolRegistry(req.Tools...)
	invoke := s.invokeRequest(conv, registry, req.SystemPrompt)

	sr, sw := schema.Pipe[*entity.StreamEvent](s.streamBuffer)
	safego.Go(ctx, func() {
		defer sw.Close()
		s.produceStream(ctx, conv, registry, invoke, sw)
	})
	return sr, nil
}

func (s *agentServiceImpl) Resume(ctx context.Context, req *entity.ResumeRequest) (*entity.AgentResponse, error) {
	if req == nil || req.ConversationID == "" {
		return nil, errno.InvalidArgument("conversation_id is required")
	}
	conv, err := s.repo.Get(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if pending := len(conv.PendingToolCalls()); pending > 0 {
		return nil, errno.ConversationBlocked(string(conv.ID()), pending)
	}
	conv.UpdateContext(req.Context)
	registry := NewToolRegistry(req.Tools...)

	executed := conv.ApprovedToolCalls()
	for _, tc := range executed {
		tool, err := registry.Lookup(tc.ToolName())
		if err != nil {
			if err := failUnstarted(conv, tc, err.Error()); err != nil {
				return nil, err
			}
			continue
		}
		if err := s.runTool(ctx, conv, tool, tc); err != nil {
			return nil, err
		}
	}
	reported := conv.RecordToolResults()

	if len(executed) == 0 && reported == nil && !awaitingRuntime(conv) {
		logger.DebugX(pkg.ModuleName, "[AgentService] conversation %s has nothing to resume", conv.ID())
		return stateResponse(conv, nil), nil
	}

	// Tool side effects already happened; keep their outcome even when the
	// runtime fails below.
	if err := s.save(ctx, conv); err != nil {
		return nil, err
	}

	out, err := s.runtime.Invoke(ctx, s.invokeRequest(conv, registry, req.SystemPrompt))
	if err != nil {
		logger.WarnX(pkg.ModuleName, "[AgentService] runtime %s failed resuming conversation %s: %v", s.runtime.Name(), conv.ID(), err)
		return nil, errno.RuntimeInvocation(err)
	}
	return s.completeTurn(ctx, conv, registry, out, executed)
}

func (s *agentServiceImpl) GetConversation(ctx context.Context, id entity.ConversationID) (*entity.Conversation, error) {
	return s.repo.Get(ctx, id)
}

func (s *agentServiceImpl) ListConversations(ctx context.Context, limit int) ([]entity.ConversationID, error) {
	return s.repo.List(ctx, limit)
}

func (s *agentServiceImpl) DeleteConversation(ctx context.Context, id entity.ConversationID) error {
	return s.repo.Delete(ctx, id)
}

// prepare resolves the conversation and appends the user message.
func (s *agentServiceImpl) prepare(ctx context.Context, req *entity.AgentRequest) (*entity.Conversation, error) {
	if req == nil {
		return nil, errno.InvalidArgument("request is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, errno.InvalidArgument("content must not be empty")
	}

	conv, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	conv.UpdateContext(req.Context)
	conv.RecordToolResults()
	if _, err := conv.AddUserMessage(req.Content); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *agentServiceImpl) resolve(ctx context.Context, req *entity.AgentRequest) (*entity.Conversation, error) {
	if len(req.Messages) > 0 {
		conv := entity.NewConversation(req.ConversationID)
		if req.SystemPrompt != "" {
			conv.AddSystemMessage(req.SystemPrompt)
		}
		for i, h := range req.Messages {
			role, ok := entity.ParseRole(string(h.Role))
			if !ok {
				return nil, errno.InvalidArgument("messages[%d]: unknown role %q", i, h.Role)
			}
			conv.Replay(role, h.Content)
		}
		return conv, nil
	}

	id := req.ConversationID
	if id == "" {
		id = entity.NewConversationID()
	}
	conv, err := s.repo.Get(ctx, id)
	switch {
	case err == nil:
		return conv, nil
	case !errors.Is(err, errno.ErrConversationNotFound):
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}

	// A new conversation is stored by the first turn that completes, so a
	// failed turn leaves no record and the retry starts it again.
	conv = entity.NewConversation(id)
	logger.InfoX(pkg.ModuleName, "[AgentService] conversation %s started", conv.ID())
	if req.SystemPrompt != "" {
		conv.AddSystemMessage(req.SystemPrompt)
	}
	return conv, nil
}

func (s *agentServiceImpl) invokeRequest(conv *entity.Conversation, registry *ToolRegistry, systemPrompt string) *runtime.InvokeRequest {
	return &runtime.InvokeRequest{
		Messages:        conv.Messages(),
		Tools:           registry.List(),
		SystemPrompt:    systemPrompt,
		PlatformContext: conv.Context(),
	}
}

// completeTurn handles the runtime reply: tool proposals, the assistant
// message, persistence and publication. settled are calls of this turn that
// were executed before the runtime was invoked.
func (s *agentServiceImpl) completeTurn(
	ctx context.Context,
	conv *entity.Conversation,
	registry *ToolRegistry,
	out *entity.AgentResponse,
	settled []*entity.ToolCall,
) (*entity.AgentResponse, error) {
	calls, overrides, err := s.handleProposals(ctx, conv, registry, out.ToolCalls)
	if err != nil {
		return nil, err
	}

	conv.AddAssistantTurn(out.Text, calls)
	if !conv.HasPendingApprovals() {
		conv.RecordToolResults()
	}

	if err := s.save(ctx, conv); err != nil {
		return nil, err
	}

	resp := stateResponse(conv, append(settled, calls...))
	resp.Text = out.Text
	for k, v := range out.Metadata {
		resp.SetMetadata(k, v)
	}
	if len(overrides) > 0 {
		resp.SetMetadata(entity.MetaApprovalOverrides, overrides)
	}

	logger.InfoX(pkg.ModuleName, "[AgentService] conversation %s turn done: %d tool call(s), pending=%v",
		conv.ID(), len(calls), resp.HasPendingApprovals)
	return resp, nil
}

// save persists the conversation and publishes its drained events.
func (s *agentServiceImpl) save(ctx context.Context, conv *entity.Conversation) error {
	return persist(ctx, s.repo, s.publisher, conv)
}

func persist(ctx context.Context, r repo.ConversationRepository, p EventPublisher, conv *entity.Conversation) error {
	if err := r.Save(ctx, conv); err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", conv.ID(), err)
	}
	events := conv.ClearEvents()
	if p == nil || len(events) == 0 {
		return nil
	}
	if err := p.Publish(ctx, events); err != nil {
		logger.WarnX(pkg.ModuleName, "[Agents] publish %d event(s) of conversation %s failed: %v", len(events), conv.ID(), err)
	}
	return nil
}

func stateResponse(conv *entity.Conversation, calls []*entity.ToolCall) *entity.AgentResponse {
	pending := conv.HasPendingApprovals()
	return &entity.AgentResponse{
		ConversationID:      conv.ID(),
		ToolCalls:           entity.ToolCallViews(calls),
		HasPendingApprovals: pending,
		IsComplete:          !pending,
	}
}

// awaitingRuntime reports whether the last message carries tool results the
// runtime has not answered yet.
func awaitingRuntime(conv *entity.Conversation) bool {
	msgs := conv.Messages()
	if len(msgs) == 0 {
		return false
	}
	last := msgs[len(msgs)-1]
	return last.Role() == entity.RoleUser && len(last.Content().ToolResultIDs()) > 0
}
