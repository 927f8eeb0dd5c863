package runtime

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
)

// InvokeRequest is the input handed to a runtime adapter for one model call.
type InvokeRequest struct {
	// Messages is the raw conversation history. Adapters normalize it.
	Messages        []*entity.Message
	Tools           []entity.Tool
	SystemPrompt    string
	PlatformContext entity.PlatformContext
}

// Adapter is the boundary to one LLM backend. Implementations convert the
// domain history to the backend format after applying Normalize, and convert
// the reply back.
//
// Invoke returns an AgentResponse whose ToolCalls are the proposed calls in
// PENDING state; RequiresApproval on each is only the backend's suggestion.
//
// InvokeStream returns a reader yielding message_start, then deltas, then
// exactly one message_end (carrying the same response Invoke would return)
// or error. The reader must be closed by the consumer.
type Adapter interface {
	Name() string
	Invoke(ctx context.Context, req *InvokeRequest) (*entity.AgentResponse, error)
	InvokeStream(ctx context.Context, req *InvokeRequest) (*schema.StreamReader[*entity.StreamEvent], error)
}
