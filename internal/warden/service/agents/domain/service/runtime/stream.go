package runtime

import (
	"errors"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
)

// ResponseStream replays a complete response as a well-formed event stream,
// for adapters that have no native streaming.
func ResponseStream(resp *entity.AgentResponse) *schema.StreamReader[*entity.StreamEvent] {
	events := make([]*entity.StreamEvent, 0, 3+3*len(resp.ToolCalls))
	events = append(events, entity.MessageStartEvent())
	if resp.Text != "" {
		events = append(events, entity.TextDeltaEvent(resp.Text))
	}
	for _, tc := range resp.ToolCalls {
		events = append(events,
			entity.ToolUseStartEvent(tc.ID, tc.ToolName),
			entity.ToolUseDeltaEvent(tc.ID, entity.NewToolInput(tc.Input).JSON()),
			entity.ToolUseEndEvent(tc.ID),
		)
	}
	events = append(events, entity.MessageEndEvent(resp))
	return schema.StreamReaderFromArray(events)
}

// CollectStream drains sr and returns the response carried by message_end.
// When the terminal response has no text, the text_delta events are joined
// instead. An error event is returned as an error.
func CollectStream(sr *schema.StreamReader[*entity.StreamEvent]) (*entity.AgentResponse, error) {
	defer sr.Close()

	var text strings.Builder
	for {
		ev, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("stream ended without message_end")
		}
		if err != nil {
			return nil, err
		}
		switch ev.Type {
		case entity.StreamTextDelta:
			text.WriteString(ev.Text)
		case entity.StreamError:
			return nil, errors.New(ev.Error)
		case entity.StreamMessageEnd:
			resp := ev.Response
			if resp == nil {
				resp = &entity.AgentResponse{}
			}
			if resp.Text == "" {
				resp.Text = text.String()
			}
			return resp, nil
		}
	}
}
