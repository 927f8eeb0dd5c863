package entity

// StreamEventType identifies an incremental unit of a streamed turn.
type StreamEventType string

const (
	StreamMessageStart       StreamEventType = "message_start"
	StreamTextDelta          StreamEventType = "text_delta"
	StreamToolUseStart       StreamEventType = "tool_use_start"
	StreamToolUseDelta       StreamEventType = "tool_use_delta"
	StreamToolUseEnd         StreamEventType = "tool_use_end"
	StreamReasoningStarted   StreamEventType = "reasoning_started"
	StreamReasoningStep      StreamEventType = "reasoning_step"
	StreamReasoningCompleted StreamEventType = "reasoning_completed"
	StreamMessageEnd         StreamEventType = "message_end"
	StreamError              StreamEventType = "error"
)

// StreamEvent is one event of a streamed turn.
//
// A turn always yields message_start first, then any number of delta,
// tool-use and reasoning events, and finally exactly one message_end or
// error. Concatenating every text_delta in order yields the final text.
type StreamEvent struct {
	Type StreamEventType `json:"type"`

	// Text is set on text_delta.
	Text string `json:"text,omitempty"`

	// ToolUseID and ToolName identify the tool call on tool_use_* events.
	ToolUseID ToolCallID `json:"tool_use_id,omitempty"`
	ToolName  string     `json:"tool_name,omitempty"`

	// PartialInput is a fragment of the JSON input on tool_use_delta.
	PartialInput string `json:"partial_input,omitempty"`

	// Content is set on reasoning_step.
	Content string `json:"content,omitempty"`

	// Response is set on message_end.
	Response *AgentResponse `json:"response,omitempty"`

	// Error is set on error.
	Error string `json:"error,omitempty"`
}

// IsTerminal reports whether the event ends the stream.
func (e *StreamEvent) IsTerminal() bool {
	return e.Type == StreamMessageEnd || e.Type == StreamError
}

func MessageStartEvent() *StreamEvent {
	return &StreamEvent{Type: StreamMessageStart}
}

func TextDeltaEvent(text string) *StreamEvent {
	return &StreamEvent{Type: StreamTextDelta, Text: text}
}

func ToolUseStartEvent(id ToolCallID, name string) *StreamEvent {
	return &StreamEvent{Type: StreamToolUseStart, ToolUseID: id, ToolName: name}
}

func ToolUseDeltaEvent(id ToolCallID, partialInput string) *StreamEvent {
	return &StreamEvent{Type: StreamToolUseDelta, ToolUseID: id, PartialInput: partialInput}
}

func ToolUseEndEvent(id ToolCallID) *StreamEvent {
	return &StreamEvent{Type: StreamToolUseEnd, ToolUseID: id}
}

func ReasoningStartedEvent() *StreamEvent {
	return &StreamEvent{Type: StreamReasoningStarted}
}

func ReasoningStepEvent(content string) *StreamEvent {
	return &StreamEvent{Type: StreamReasoningStep, Content: content}
}

func ReasoningCompletedEvent() *StreamEvent {
	return &StreamEvent{Type: StreamReasoningCompleted}
}

func MessageEndEvent(resp *AgentResponse) *StreamEvent {
	return &StreamEvent{Type: StreamMessageEnd, Response: resp}
}

func ErrorEvent(msg string) *StreamEvent {
	return &StreamEvent{Type: StreamError, Error: msg}
}
