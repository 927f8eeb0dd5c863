package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/logger"
)

// produceStream is the body of the ExecuteStream producer goroutine. It
// sends message_start, forwards the runtime deltas, completes the turn and
// sends exactly one terminal event. Nothing is persisted when the turn
// fails or the consumer goes away.
func (s *agentServiceImpl) produceStream(
	ctx context.Context,
	conv *entity.Conversation,
	registry *ToolRegistry,
	invoke *runtime.InvokeRequest,
	sw *schema.StreamWriter[*entity.StreamEvent],
) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorX(pkg.ModuleName, "[AgentService] stream of conversation %s panicked: %v", conv.ID(), r)
			sw.Send(entity.ErrorEvent(fmt.Sprintf("internal error: %v", r)), nil)
		}
	}()

	fail := func(err error) {
		logger.WarnX(pkg.ModuleName, "[AgentService] stream of conversation %s failed: %v", conv.ID(), err)
		sw.Send(entity.ErrorEvent(err.Error()), nil)
	}

	if closed := sw.Send(entity.MessageStartEvent(), nil); closed {
		return
	}

	upstream, err := s.runtime.InvokeStream(ctx, invoke)
	if err != nil {
		fail(errno.RuntimeInvocation(err))
		return
	}
	defer upstream.Close()

	var (
		text  strings.Builder
		final *entity.AgentResponse
	)
recv:
	for {
		ev, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(errno.RuntimeInvocation(err))
			return
		}
		if ev == nil {
			continue
		}

		switch ev.Type {
		case entity.StreamMessageStart:
			continue
		case entity.StreamMessageEnd:
			final = ev.Response
			break recv
		case entity.StreamError:
			fail(errno.RuntimeInvocation(errors.New(ev.Error)))
			return
		case entity.StreamTextDelta:
			text.WriteString(ev.Text)
		}
		if closed := sw.Send(ev, nil); closed {
			logger.InfoX(pkg.ModuleName, "[AgentService] consumer of conversation %s went away", conv.ID())
			return
		}
	}

	if final == nil {
		fail(errno.RuntimeInvocation(errors.New("runtime stream ended without message_end")))
		return
	}

	// The deltas are the source of truth for the persisted text. A runtime
	// that only reported the text at the end gets it forwarded as one delta.
	if text.Len() > 0 {
		final.Text = text.String()
	} else if final.Text != "" {
		if closed := sw.Send(entity.TextDeltaEvent(final.Text), nil); closed {
			return
		}
	}

	resp, err := s.completeTurn(ctx, conv, registry, final, nil)
	if err != nil {
		fail(err)
		return
	}
	sw.Send(entity.MessageEndEvent(resp), nil)
}
