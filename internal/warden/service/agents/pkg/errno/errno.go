package errno

import (
	"errors"
	"fmt"
	"maps"
)

// Sentinels identifying each error kind. Match them with errors.Is.
var (
	ErrConversationBlocked    = errors.New("conversation blocked by pending approvals")
	ErrInvalidStateTransition = errors.New("invalid tool call state transition")
	ErrToolCallNotFound       = errors.New("tool call not found")
	ErrToolNotFound           = errors.New("tool not found")
	ErrInvalidToolInput       = errors.New("invalid tool input")
	ErrConversationNotFound   = errors.New("conversation not found")
	ErrRuntimeInvocation      = errors.New("runtime invocation failed")
	ErrInvalidArgument        = errors.New("invalid argument")
)

// Error is the common domain error. It carries a human readable message,
// structured details and optionally the underlying cause.
type Error struct {
	kind    error
	message string
	details map[string]any
	cause   error
}

func newError(kind error, details map[string]any, format string, args ...any) *Error {
	return &Error{
		kind:    kind,
		message: fmt.Sprintf(format, args...),
		details: details,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Kind returns the sentinel this error belongs to.
func (e *Error) Kind() error { return e.kind }

// Message returns the message without the cause.
func (e *Error) Message() string { return e.message }

// Details returns a copy of the structured details.
func (e *Error) Details() map[string]any {
	return maps.Clone(e.details)
}

// WithDetail sets one structured detail and returns e.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any, 1)
	}
	e.details[key] = value
	return e
}

// ConversationBlocked is returned when a user message is appended while
// tool calls are still waiting for a decision.
func ConversationBlocked(conversationID string, pending int) *Error {
	return newError(ErrConversationBlocked,
		map[string]any{"conversation_id": conversationID, "pending_tool_calls": pending},
		"conversation %s has %d tool call(s) awaiting approval", conversationID, pending)
}

// InvalidStateTransition is returned by the tool call state machine.
func InvalidStateTransition(current, attempted string) *Error {
	return newError(ErrInvalidStateTransition,
		map[string]any{"current": current, "attempted": attempted},
		"cannot %s tool call in state %s", attempted, current)
}

// TransitionOf extracts the states carried by an InvalidStateTransition error.
func TransitionOf(err error) (current, attempted string, ok bool) {
	var e *Error
	if !errors.As(err, &e) || e.kind != ErrInvalidStateTransition {
		return "", "", false
	}
	current, _ = e.details["current"].(string)
	attempted, _ = e.details["attempted"].(string)
	return current, attempted, true
}

func ToolCallNotFound(conversationID, toolCallID string) *Error {
	return newError(ErrToolCallNotFound,
		map[string]any{"conversation_id": conversationID, "tool_call_id": toolCallID},
		"tool call %s not found in conversation %s", toolCallID, conversationID)
}

func ToolNotFound(name string) *Error {
	return newError(ErrToolNotFound, map[string]any{"tool": name}, "tool not found: %s", name)
}

func InvalidToolInput(tool string, cause error) *Error {
	e := newError(ErrInvalidToolInput, map[string]any{"tool": tool}, "invalid input for tool %s", tool)
	e.cause = cause
	return e
}

func ConversationNotFound(conversationID string) *Error {
	return newError(ErrConversationNotFound,
		map[string]any{"conversation_id": conversationID},
		"conversation %s not found", conversationID)
}

// RuntimeInvocation wraps a backend failure so callers can tell it apart
// from domain violations.
func RuntimeInvocation(cause error) *Error {
	e := newError(ErrRuntimeInvocation, nil, "runtime invocation failed")
	e.cause = cause
	return e
}

func InvalidArgument(format string, args ...any) *Error {
	return newError(ErrInvalidArgument, nil, format, args...)
}
