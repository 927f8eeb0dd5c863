package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	v1 "github.com/kiosk404/warden/internal/warden/handler/v1"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/pkg/utils/json"
)

// EventHandler receives every streamed event in order.
type EventHandler func(event *entity.StreamEvent)

// ExecuteStream runs one streamed turn and returns the final response
// carried by message_end. An error event is returned as an error.
func (c *Client) ExecuteStream(ctx context.Context, req *v1.ExecuteRequest, onEvent EventHandler) (*entity.AgentResponse, error) {
	body := *req
	body.Stream = true

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/v1/conversations", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, decodeError(resp.StatusCode, data)
	}

	var final *entity.AgentResponse
	err = readEvents(resp.Body, func(event *entity.StreamEvent) error {
		if onEvent != nil {
			onEvent(event)
		}
		switch event.Type {
		case entity.StreamMessageEnd:
			final = event.Response
		case entity.StreamError:
			return fmt.Errorf("stream error: %s", event.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if final == nil {
		return nil, errors.New("stream ended without message_end")
	}
	if final.ConversationID == "" {
		final.ConversationID = entity.ConversationID(resp.Header.Get(v1.HeaderConversationID))
	}
	return final, nil
}

// readEvents parses a server-sent event stream. Events without data are
// skipped; multi-line data is joined with newlines.
func readEvents(r io.Reader, fn func(*entity.StreamEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		name string
		data []string
	)
	dispatch := func() error {
		defer func() { name, data = "", nil }()
		if len(data) == 0 {
			return nil
		}
		var event entity.StreamEvent
		if err := json.UnmarshalString(strings.Join(data, "\n"), &event); err != nil {
			return fmt.Errorf("decode %q event: %w", name, err)
		}
		if event.Type == "" {
			event.Type = entity.StreamEventType(name)
		}
		if err := fn(&event); err != nil {
			return err
		}
		if event.IsTerminal() {
			return io.EOF
		}
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := dispatch(); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	if err := dispatch(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
