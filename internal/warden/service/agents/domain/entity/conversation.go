package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/utils/json"
)

// Conversation is the aggregate root tracking the ordered messages of one
// chat session and the approval state of every tool call proposed in it.
//
// Invariants:
//   - no USER message may be appended while a tracked tool call is PENDING;
//   - tracked tool calls are never removed, only transitioned;
//   - messages are append-only.
//
// A Conversation is not safe for concurrent use. Callers serialize work per
// conversation id.
type Conversation struct {
	id        ConversationID
	messages  []*Message
	toolCalls []*ToolCall
	index     map[ToolCallID]*ToolCall
	context   PlatformContext
	createdAt time.Time
	updatedAt time.Time

	events []DomainEvent
}

// NewConversation creates an empty conversation and records ConversationStarted.
// An empty id is replaced by a generated one.
func NewConversation(id ConversationID) *Conversation {
	if id == "" {
		id = NewConversationID()
	}
	now := time.Now().UTC()
	c := &Conversation{
		id:        id,
		index:     make(map[ToolCallID]*ToolCall),
		createdAt: now,
		updatedAt: now,
	}
	c.record(ConversationStarted{EventMeta: newEventMeta(id)})
	return c
}

func (c *Conversation) ID() ConversationID   { return c.id }
func (c *Conversation) CreatedAt() time.Time { return c.createdAt }
func (c *Conversation) UpdatedAt() time.Time { return c.updatedAt }

// Messages returns the messages in append order.
func (c *Conversation) Messages() []*Message {
	return append([]*Message(nil), c.messages...)
}

// Context returns a copy of the platform context.
func (c *Conversation) Context() PlatformContext {
	return c.context.Clone()
}

// AllToolCalls returns every tracked tool call in tracking order.
func (c *Conversation) AllToolCalls() []*ToolCall {
	return append([]*ToolCall(nil), c.toolCalls...)
}

// PendingToolCalls returns the tool calls awaiting a human decision.
func (c *Conversation) PendingToolCalls() []*ToolCall {
	return c.toolCallsIn(ToolCallPending)
}

// ApprovedToolCalls returns calls approved but not executed yet.
func (c *Conversation) ApprovedToolCalls() []*ToolCall {
	return c.toolCallsIn(ToolCallApproved)
}

func (c *Conversation) toolCallsIn(status ToolCallStatus) []*ToolCall {
	var out []*ToolCall
	for _, tc := range c.toolCalls {
		if tc.Status() == status {
			out = append(out, tc)
		}
	}
	return out
}

func (c *Conversation) HasPendingApprovals() bool {
	for _, tc := range c.toolCalls {
		if tc.Status() == ToolCallPending {
			return true
		}
	}
	return false
}

// ToolCall looks up a tracked tool call.
func (c *Conversation) ToolCall(id ToolCallID) (*ToolCall, error) {
	tc, ok := c.index[id]
	if !ok {
		return nil, errno.ToolCallNotFound(string(c.id), string(id))
	}
	return tc, nil
}

// AddUserMessage appends a human message. It fails with ConversationBlocked
// while approvals are pending.
func (c *Conversation) AddUserMessage(text string) (*Message, error) {
	if pending := len(c.PendingToolCalls()); pending > 0 {
		return nil, errno.ConversationBlocked(string(c.id), pending)
	}
	return c.append(NewUserMessage(text)), nil
}

func (c *Conversation) AddAssistantMessage(text string) *Message {
	return c.append(NewAssistantMessage(text))
}

// AddAssistantTurn appends the assistant reply of a turn: its text followed by
// one TOOL_USE block per proposed call. Nothing is appended when both are empty.
func (c *Conversation) AddAssistantTurn(text string, calls []*ToolCall) *Message {
	blocks := make([]ContentBlock, 0, len(calls)+1)
	if strings.TrimSpace(text) != "" {
		blocks = append(blocks, TextBlock(text))
	}
	for _, tc := range calls {
		blocks = append(blocks, ToolUseBlock(tc.ID(), tc.ToolName(), tc.Input()))
	}
	if len(blocks) == 0 {
		return nil
	}
	return c.append(NewMessage(RoleAssistant, NewMessageContent(blocks...)))
}

func (c *Conversation) AddSystemMessage(text string) *Message {
	return c.append(NewSystemMessage(text))
}

// Replay appends a message from external history, preserving its role and
// skipping invariant checks.
func (c *Conversation) Replay(role Role, text string) *Message {
	return c.append(NewMessage(role, TextContent(text)))
}

// UpdateContext merges ctx into the platform context.
func (c *Conversation) UpdateContext(ctx PlatformContext) {
	if len(ctx) == 0 {
		return
	}
	c.context = c.context.Merge(ctx)
	c.touch()
}

// RequestToolApproval tracks calls that need a human decision and records a
// single ApprovalRequested event for them.
func (c *Conversation) RequestToolApproval(calls ...*ToolCall) error {
	if len(calls) == 0 {
		return nil
	}
	batch := make(map[ToolCallID]struct{}, len(calls))
	for _, tc := range calls {
		if err := c.checkTrackable(tc); err != nil {
			return err
		}
		if _, dup := batch[tc.ID()]; dup {
			return errno.InvalidArgument("tool call %s is requested twice", tc.ID())
		}
		batch[tc.ID()] = struct{}{}
	}
	for _, tc := range calls {
		c.track(tc)
	}
	c.record(ApprovalRequested{EventMeta: newEventMeta(c.id), ToolCalls: ToolCallViews(calls)})
	return nil
}

// AutoApproveToolCall tracks a call that needs no human decision and
// approves it immediately.
func (c *Conversation) AutoApproveToolCall(tc *ToolCall) error {
	if err := c.checkTrackable(tc); err != nil {
		return err
	}
	if err := tc.AutoApprove(); err != nil {
		return err
	}
	c.track(tc)
	c.record(ToolCallApprovedEvent{EventMeta: newEventMeta(c.id), ToolCallID: tc.ID(), ToolName: tc.ToolName(), Auto: true})
	return nil
}

func (c *Conversation) ApproveToolCall(id ToolCallID) error {
	tc, err := c.ToolCall(id)
	if err != nil {
		return err
	}
	if err := tc.Approve(); err != nil {
		return err
	}
	c.touch()
	c.record(ToolCallApprovedEvent{EventMeta: newEventMeta(c.id), ToolCallID: id, ToolName: tc.ToolName()})
	return nil
}

func (c *Conversation) RejectToolCall(id ToolCallID, reason string) error {
	tc, err := c.ToolCall(id)
	if err != nil {
		return err
	}
	if err := tc.Reject(reason); err != nil {
		return err
	}
	c.touch()
	c.record(ToolCallRejectedEvent{EventMeta: newEventMeta(c.id), ToolCallID: id, ToolName: tc.ToolName(), Reason: reason})
	return nil
}

// StartToolCall moves an approved call to EXECUTING.
func (c *Conversation) StartToolCall(id ToolCallID) error {
	tc, err := c.ToolCall(id)
	if err != nil {
		return err
	}
	if err := tc.StartExecution(); err != nil {
		return err
	}
	c.touch()
	return nil
}

func (c *Conversation) CompleteToolCall(id ToolCallID, result string) error {
	tc, err := c.ToolCall(id)
	if err != nil {
		return err
	}
	if err := tc.Complete(result); err != nil {
		return err
	}
	c.touch()
	c.record(ToolExecuted{EventMeta: newEventMeta(c.id), ToolCallID: id, ToolName: tc.ToolName(), Result: result})
	return nil
}

func (c *Conversation) FailToolCall(id ToolCallID, errText string) error {
	tc, err := c.ToolCall(id)
	if err != nil {
		return err
	}
	if err := tc.Fail(errText); err != nil {
		return err
	}
	c.touch()
	c.record(ToolExecutionFailed{EventMeta: newEventMeta(c.id), ToolCallID: id, ToolName: tc.ToolName(), Error: errText})
	return nil
}

// RecordToolResults appends one USER message holding a TOOL_RESULT block for
// every settled tool call whose TOOL_USE block is in the history and whose
// result has not been reported yet. It returns nil when there is nothing to
// report. It is not subject to the approval gate.
func (c *Conversation) RecordToolResults() *Message {
	used := make(map[ToolCallID]struct{})
	reported := make(map[ToolCallID]struct{})
	for _, m := range c.messages {
		for _, id := range m.content.ToolUseIDs() {
			used[id] = struct{}{}
		}
		for _, id := range m.content.ToolResultIDs() {
			reported[id] = struct{}{}
		}
	}

	var blocks []ContentBlock
	for _, tc := range c.toolCalls {
		if !tc.Status().IsTerminal() {
			continue
		}
		if _, ok := used[tc.ID()]; !ok {
			continue
		}
		if _, ok := reported[tc.ID()]; ok {
			continue
		}
		blocks = append(blocks, resultBlockFor(tc))
	}
	if len(blocks) == 0 {
		return nil
	}
	return c.append(NewMessage(RoleUser, NewMessageContent(blocks...)))
}

func resultBlockFor(tc *ToolCall) ContentBlock {
	switch tc.Status() {
	case ToolCallCompleted:
		return ToolResultBlock(tc.ID(), tc.Result(), false)
	case ToolCallRejected:
		reason := tc.RejectionReason()
		if reason == "" {
			reason = "no reason given"
		}
		return ToolResultBlock(tc.ID(), fmt.Sprintf("tool call rejected by user: %s", reason), true)
	default:
		return ToolResultBlock(tc.ID(), fmt.Sprintf("tool execution failed: %s", tc.ErrorText()), true)
	}
}

// ClearEvents drains the uncommitted events in emission order.
func (c *Conversation) ClearEvents() []DomainEvent {
	events := c.events
	c.events = nil
	if events == nil {
		return []DomainEvent{}
	}
	return events
}

func (c *Conversation) checkTrackable(tc *ToolCall) error {
	if tc == nil {
		return errno.InvalidArgument("tool call must not be nil")
	}
	if _, dup := c.index[tc.ID()]; dup {
		return errno.InvalidArgument("tool call %s is already tracked", tc.ID())
	}
	if tc.Status() != ToolCallPending {
		return errno.InvalidStateTransition(string(tc.Status()), "track")
	}
	return nil
}

func (c *Conversation) track(tc *ToolCall) {
	c.toolCalls = append(c.toolCalls, tc)
	c.index[tc.ID()] = tc
	c.touch()
}

func (c *Conversation) append(m *Message) *Message {
	c.messages = append(c.messages, m)
	c.touch()
	return m
}

func (c *Conversation) record(e DomainEvent) {
	c.events = append(c.events, e)
}

func (c *Conversation) touch() {
	c.updatedAt = time.Now().UTC()
}

type conversationJSON struct {
	ID        ConversationID  `json:"id"`
	Messages  []*Message      `json:"messages"`
	ToolCalls []*ToolCall     `json:"tool_calls"`
	Context   PlatformContext `json:"context,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MarshalJSON persists the durable state. Uncommitted events are not included.
func (c *Conversation) MarshalJSON() ([]byte, error) {
	return json.Marshal(conversationJSON{
		ID:        c.id,
		Messages:  c.messages,
		ToolCalls: c.toolCalls,
		Context:   c.context,
		CreatedAt: c.createdAt,
		UpdatedAt: c.updatedAt,
	})
}

func (c *Conversation) UnmarshalJSON(data []byte) error {
	var dto conversationJSON
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	if dto.ID == "" {
		return errno.InvalidArgument("conversation record has no id")
	}
	*c = Conversation{
		id:        dto.ID,
		messages:  dto.Messages,
		toolCalls: dto.ToolCalls,
		index:     make(map[ToolCallID]*ToolCall, len(dto.ToolCalls)),
		context:   dto.Context,
		createdAt: dto.CreatedAt,
		updatedAt: dto.UpdatedAt,
	}
	for _, tc := range c.toolCalls {
		c.index[tc.ID()] = tc
	}
	return nil
}
