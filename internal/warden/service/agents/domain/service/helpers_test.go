package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/internal/warden/service/agents/store/inmemory"
)

type fakeTool struct {
	name     string
	approval bool
	needsCtx bool
	schema   string
	run      func(ctx context.Context, in entity.ToolInput, pc entity.PlatformContext) (string, error)

	mu    sync.Mutex
	calls []entity.ToolInput
	pcs   []entity.PlatformContext
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return "fake " + t.name }
func (t *fakeTool) Schema() json.RawMessage {
	if t.schema == "" {
		return nil
	}
	return json.RawMessage(t.schema)
}
func (t *fakeTool) RequiresApproval() bool        { return t.approval }
func (t *fakeTool) RequiresPlatformContext() bool { return t.needsCtx }

func (t *fakeTool) Execute(ctx context.Context, in entity.ToolInput, pc entity.PlatformContext) (string, error) {
	t.mu.Lock()
	t.calls = append(t.calls, in)
	t.pcs = append(t.pcs, pc)
	t.mu.Unlock()
	if t.run != nil {
		return t.run(ctx, in, pc)
	}
	return "ok:" + t.name, nil
}

func (t *fakeTool) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

type fakeToolkit struct {
	fakeTool
	members []entity.Tool
}

func (k *fakeToolkit) Tools() []entity.Tool { return k.members }

// fakeAdapter replays scripted responses in order.
type fakeAdapter struct {
	mu        sync.Mutex
	responses []*entity.AgentResponse
	streams   [][]*entity.StreamEvent
	err       error
	requests  []*runtime.InvokeRequest
}

func (a *fakeAdapter) Name() string { return "fake" }

func (a *fakeAdapter) Invoke(_ context.Context, req *runtime.InvokeRequest) (*entity.AgentResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.err != nil {
		return nil, a.err
	}
	return a.next(), nil
}

func (a *fakeAdapter) InvokeStream(_ context.Context, req *runtime.InvokeRequest) (*schema.StreamReader[*entity.StreamEvent], error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.err != nil {
		return nil, a.err
	}
	if len(a.streams) > 0 {
		events := a.streams[0]
		a.streams = a.streams[1:]
		return schema.StreamReaderFromArray(events), nil
	}
	return runtime.ResponseStream(a.next()), nil
}

func (a *fakeAdapter) next() *entity.AgentResponse {
	if len(a.responses) == 0 {
		return &entity.AgentResponse{Text: "nothing scripted"}
	}
	resp := a.responses[0]
	a.responses = a.responses[1:]
	return resp
}

func (a *fakeAdapter) invocations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func (a *fakeAdapter) lastRequest() *runtime.InvokeRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.requests) == 0 {
		return nil
	}
	return a.requests[len(a.requests)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events []entity.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.EventName())
	}
	return names
}

var errBackend = errors.New("backend unavailable")

func proposal(id entity.ToolCallID, name string, input map[string]any, suggested bool) entity.ToolCallView {
	return entity.ToolCallView{
		ID:               id,
		ToolName:         name,
		Input:            input,
		RequiresApproval: suggested,
		Status:           entity.ToolCallPending,
	}
}

type fixture struct {
	repo      *inmemory.ConversationStore
	adapter   *fakeAdapter
	publisher *recordingPublisher
	agents    AgentService
	approvals ApprovalService
}

func newFixture(policy *ApprovalPolicy, responses ...*entity.AgentResponse) *fixture {
	f := &fixture{
		repo:      inmemory.NewConversationStore(),
		adapter:   &fakeAdapter{responses: responses},
		publisher: &recordingPublisher{},
	}
	f.agents = NewAgentService(AgentServiceComponents{
		Repo:      f.repo,
		Runtime:   f.adapter,
		Publisher: f.publisher,
		Policy:    policy,
	})
	f.approvals = NewApprovalService(f.repo, f.publisher)
	return f
}

func (f *fixture) stored(id entity.ConversationID) *entity.Conversation {
	conv, err := f.repo.Get(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return conv
}

func collect(sr *schema.StreamReader[*entity.StreamEvent]) []*entity.StreamEvent {
	defer sr.Close()
	var events []*entity.StreamEvent
	for {
		ev, err := sr.Recv()
		if err != nil {
			return events
		}
		events = append(events, ev)
	}
}
