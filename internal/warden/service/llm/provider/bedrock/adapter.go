package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/pkg/utils/safego"
)

const streamBuffer = 32

// ConverseAPI is the subset of the Bedrock runtime client the adapter uses.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

var _ runtime.Adapter = (*Adapter)(nil)

type Adapter struct {
	client      ConverseAPI
	model       string
	maxTokens   int
	temperature *float32
	topP        *float32
	opts        runtime.NormalizeOptions
}

func NewAdapter(client ConverseAPI, cfg *options.ProviderConfig, norm runtime.NormalizeOptions) *Adapter {
	return &Adapter{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		opts:        norm,
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Invoke(ctx context.Context, req *runtime.InvokeRequest) (*entity.AgentResponse, error) {
	if req == nil {
		return nil, errors.New("nil invoke request")
	}
	messages, system := normalizeRequest(req, a.opts)

	out, err := a.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(a.model),
		Messages:        messages,
		System:          system,
		InferenceConfig: toInferenceConfig(a.maxTokens, a.temperature, a.topP),
		ToolConfig:      toToolConfig(req.Tools),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock converse (model %s): %w", a.model, err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("bedrock converse (model %s): reply carries no message", a.model)
	}
	resp, err := fromMessage(msg.Value)
	if err != nil {
		return nil, err
	}
	resp.SetMetadata(entity.MetaModel, a.model)
	if out.StopReason != "" {
		resp.SetMetadata(entity.MetaStopReason, string(out.StopReason))
	}
	setUsage(resp, out.Usage)
	return resp, nil
}

func (a *Adapter) InvokeStream(ctx context.Context, req *runtime.InvokeRequest) (*schema.StreamReader[*entity.StreamEvent], error) {
	if req == nil {
		return nil, errors.New("nil invoke request")
	}
	messages, system := normalizeRequest(req, a.opts)

	out, err := a.client.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:         aws.String(a.model),
		Messages:        messages,
		System:          system,
		InferenceConfig: toInferenceConfig(a.maxTokens, a.temperature, a.topP),
		ToolConfig:      toToolConfig(req.Tools),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock converse stream (model %s): %w", a.model, err)
	}

	sr, sw := schema.Pipe[*entity.StreamEvent](streamBuffer)
	safego.Go(ctx, func() {
		a.relay(ctx, out.GetStream(), sw)
	})
	return sr, nil
}

// toolUse accumulates one streamed tool_use block.
type toolUse struct {
	id    string
	name  string
	input strings.Builder
}

// relay forwards Converse stream events. Metadata arrives after
// MessageStop, so the event channel is drained until it closes.
func (a *Adapter) relay(ctx context.Context, stream *bedrockruntime.ConverseStreamEventStream, sw *schema.StreamWriter[*entity.StreamEvent]) {
	defer sw.Close()
	defer stream.Close()

	send := func(ev *entity.StreamEvent) bool {
		return !sw.Send(ev, nil)
	}
	if !send(entity.MessageStartEvent()) {
		return
	}

	var (
		text    strings.Builder
		current *toolUse
		calls   []entity.ToolCallView
		resp    = &entity.AgentResponse{}
	)

	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			send(entity.ErrorEvent(ctx.Err().Error()))
			return
		case event, ok := <-events:
			if !ok {
				if err := stream.Err(); err != nil {
					send(entity.ErrorEvent(fmt.Sprintf("bedrock converse stream (model %s): %v", a.model, err)))
					return
				}
				resp.Text = text.String()
				resp.ToolCalls = calls
				if resp.ToolCalls == nil {
					resp.ToolCalls = []entity.ToolCallView{}
				}
				resp.SetMetadata(entity.MetaModel, a.model)
				send(entity.MessageEndEvent(resp))
				return
			}

			switch ev := event.(type) {
			case *types.ConverseStreamOutputMemberContentBlockStart:
				if start, ok := ev.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
					current = &toolUse{
						id:   aws.ToString(start.Value.ToolUseId),
						name: aws.ToString(start.Value.Name),
					}
					if !send(entity.ToolUseStartEvent(entity.ToolCallID(current.id), current.name)) {
						return
					}
				}

			case *types.ConverseStreamOutputMemberContentBlockDelta:
				switch delta := ev.Value.Delta.(type) {
				case *types.ContentBlockDeltaMemberText:
					if delta.Value == "" {
						continue
					}
					text.WriteString(delta.Value)
					if !send(entity.TextDeltaEvent(delta.Value)) {
						return
					}
				case *types.ContentBlockDeltaMemberToolUse:
					if current == nil || delta.Value.Input == nil {
						continue
					}
					current.input.WriteString(*delta.Value.Input)
					if !send(entity.ToolUseDeltaEvent(entity.ToolCallID(current.id), *delta.Value.Input)) {
						return
					}
				}

			case *types.ConverseStreamOutputMemberContentBlockStop:
				if current == nil {
					continue
				}
				input, err := entity.ParseToolInput(current.input.String())
				if err != nil {
					send(entity.ErrorEvent(fmt.Sprintf("bedrock: tool %s: invalid input: %v", current.name, err)))
					return
				}
				calls = append(calls, entity.ToolCallView{
					ID:       entity.ToolCallID(current.id),
					ToolName: current.name,
					Input:    input.Map(),
					Status:   entity.ToolCallPending,
				})
				if !send(entity.ToolUseEndEvent(entity.ToolCallID(current.id))) {
					return
				}
				current = nil

			case *types.ConverseStreamOutputMemberMessageStop:
				if ev.Value.StopReason != "" {
					resp.SetMetadata(entity.MetaStopReason, string(ev.Value.StopReason))
				}

			case *types.ConverseStreamOutputMemberMetadata:
				setUsage(resp, ev.Value.Usage)
			}
		}
	}
}
