package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/pkg/logger"
	"github.com/kiosk404/warden/pkg/utils/safego"
)

const streamBuffer = 32

var _ runtime.Adapter = (*ChatModelAdapter)(nil)

// ChatModelAdapter runs conversations on any Eino chat model.
type ChatModelAdapter struct {
	name      string
	modelName string
	model     model.BaseChatModel
	opts      runtime.NormalizeOptions
}

func NewChatModelAdapter(name, modelName string, cm model.BaseChatModel, opts runtime.NormalizeOptions) *ChatModelAdapter {
	return &ChatModelAdapter{
		name:      name,
		modelName: modelName,
		model:     cm,
		opts:      opts,
	}
}

func (a *ChatModelAdapter) Name() string { return a.name }

func (a *ChatModelAdapter) Invoke(ctx context.Context, req *runtime.InvokeRequest) (*entity.AgentResponse, error) {
	cm, msgs, err := a.prepare(req)
	if err != nil {
		return nil, err
	}

	out, err := cm.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", a.name, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%s generate: empty reply", a.name)
	}
	return FromSchemaMessage(out, a.modelName)
}

func (a *ChatModelAdapter) InvokeStream(ctx context.Context, req *runtime.InvokeRequest) (*schema.StreamReader[*entity.StreamEvent], error) {
	cm, msgs, err := a.prepare(req)
	if err != nil {
		return nil, err
	}

	upstream, err := cm.Stream(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("%s stream: %w", a.name, err)
	}

	sr, sw := schema.Pipe[*entity.StreamEvent](streamBuffer)
	safego.Go(ctx, func() {
		a.relay(upstream, sw)
	})
	return sr, nil
}

// prepare binds the request tools and converts the history.
func (a *ChatModelAdapter) prepare(req *runtime.InvokeRequest) (model.BaseChatModel, []*schema.Message, error) {
	if req == nil {
		return nil, nil, errors.New("nil invoke request")
	}

	cm := a.model
	if len(req.Tools) > 0 {
		tcm, ok := a.model.(model.ToolCallingChatModel)
		if !ok {
			return nil, nil, fmt.Errorf("%s: model %s does not support tool calling", a.name, a.modelName)
		}
		infos, err := ToToolInfos(req.Tools)
		if err != nil {
			return nil, nil, err
		}
		bound, err := tcm.WithTools(infos)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: binding tools: %w", a.name, err)
		}
		cm = bound
	}

	msgs := ToSchemaMessages(req, a.opts)
	logger.Debug("[LLM] %s: invoking %s with %d messages and %d tools", a.name, a.modelName, len(msgs), len(req.Tools))
	return cm, msgs, nil
}

// relay turns Eino message chunks into stream events. Text and reasoning are
// forwarded as they arrive; tool calls are only complete once every chunk is
// concatenated, so their events precede message_end.
func (a *ChatModelAdapter) relay(upstream *schema.StreamReader[*schema.Message], sw *schema.StreamWriter[*entity.StreamEvent]) {
	defer sw.Close()
	defer upstream.Close()

	send := func(ev *entity.StreamEvent) bool {
		return !sw.Send(ev, nil)
	}

	if !send(entity.MessageStartEvent()) {
		return
	}

	var (
		chunks    []*schema.Message
		reasoning bool
	)
	for {
		chunk, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			send(entity.ErrorEvent(fmt.Sprintf("%s stream: %v", a.name, err)))
			return
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)

		if chunk.ReasoningContent != "" {
			if !reasoning {
				reasoning = true
				if !send(entity.ReasoningStartedEvent()) {
					return
				}
			}
			if !send(entity.ReasoningStepEvent(chunk.ReasoningContent)) {
				return
			}
		}
		if chunk.Content != "" {
			if reasoning {
				reasoning = false
				if !send(entity.ReasoningCompletedEvent()) {
					return
				}
			}
			if !send(entity.TextDeltaEvent(chunk.Content)) {
				return
			}
		}
	}
	if reasoning && !send(entity.ReasoningCompletedEvent()) {
		return
	}

	full := &schema.Message{Role: schema.Assistant}
	if len(chunks) > 0 {
		concat, err := schema.ConcatMessages(chunks)
		if err != nil {
			send(entity.ErrorEvent(fmt.Sprintf("%s stream: %v", a.name, err)))
			return
		}
		full = concat
	}

	resp, err := FromSchemaMessage(full, a.modelName)
	if err != nil {
		send(entity.ErrorEvent(err.Error()))
		return
	}
	for _, tc := range resp.ToolCalls {
		if !send(entity.ToolUseStartEvent(tc.ID, tc.ToolName)) ||
			!send(entity.ToolUseDeltaEvent(tc.ID, entity.NewToolInput(tc.Input).JSON())) ||
			!send(entity.ToolUseEndEvent(tc.ID)) {
			return
		}
	}
	send(entity.MessageEndEvent(resp))
}
