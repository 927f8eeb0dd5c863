package entity

import (
	"testing"

	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/utils/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversationRecordsStart(t *testing.T) {
	c := NewConversation("")
	require.NotEmpty(t, c.ID())

	events := c.ClearEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventConversationStarted, events[0].EventName())
	assert.Equal(t, c.ID(), events[0].AggregateID())
}

func TestAddUserMessageBlockedWhilePending(t *testing.T) {
	c := NewConversation("conv-1")
	_, err := c.AddUserMessage("hi")
	require.NoError(t, err)

	tc := newCall(true)
	require.NoError(t, c.RequestToolApproval(tc))
	require.True(t, c.HasPendingApprovals())

	for i := 0; i < 3; i++ {
		_, err = c.AddUserMessage("again")
		require.ErrorIs(t, err, errno.ErrConversationBlocked)
	}
	assert.Len(t, c.Messages(), 1)

	// Assistant and system messages are never blocked.
	assert.NotNil(t, c.AddAssistantMessage("waiting"))
	assert.NotNil(t, c.AddSystemMessage("note"))

	require.NoError(t, c.ApproveToolCall(tc.ID()))
	assert.False(t, c.HasPendingApprovals())
	_, err = c.AddUserMessage("unblocked")
	assert.NoError(t, err)
}

func TestConversationToolCallNotFound(t *testing.T) {
	c := NewConversation("conv-1")
	err := c.ApproveToolCall("missing")
	require.ErrorIs(t, err, errno.ErrToolCallNotFound)
	err = c.RejectToolCall("missing", "x")
	require.ErrorIs(t, err, errno.ErrToolCallNotFound)
	err = c.CompleteToolCall("missing", "x")
	require.ErrorIs(t, err, errno.ErrToolCallNotFound)
}

func TestConversationToolCallsOnlyGrow(t *testing.T) {
	c := NewConversation("conv-1")
	a, b := newCall(true), newCall(false)
	require.NoError(t, c.RequestToolApproval(a))
	require.NoError(t, c.AutoApproveToolCall(b))
	require.NoError(t, c.RejectToolCall(a.ID(), "too risky"))
	require.NoError(t, c.StartToolCall(b.ID()))
	require.NoError(t, c.CompleteToolCall(b.ID(), "ok"))

	all := c.AllToolCalls()
	require.Len(t, all, 2)
	assert.Equal(t, a.ID(), all[0].ID())
	assert.Equal(t, b.ID(), all[1].ID())

	err := c.RequestToolApproval(a)
	assert.ErrorIs(t, err, errno.ErrInvalidArgument)
	assert.Len(t, c.AllToolCalls(), 2)
}

func TestRequestToolApprovalRejectsRepeatedIDs(t *testing.T) {
	c := NewConversation("conv-1")
	a := NewToolCall(ToolCallSpec{ID: "dup", ToolName: "rm", RequiresApproval: true})
	b := NewToolCall(ToolCallSpec{ID: "dup", ToolName: "rm", RequiresApproval: true})

	err := c.RequestToolApproval(a, b)
	assert.ErrorIs(t, err, errno.ErrInvalidArgument)
	assert.Empty(t, c.AllToolCalls())
	assert.False(t, c.HasPendingApprovals())
}

func TestClearEventsDrainsInOrder(t *testing.T) {
	c := NewConversation("conv-1")
	tc := newCall(false)
	require.NoError(t, c.AutoApproveToolCall(tc))
	require.NoError(t, c.StartToolCall(tc.ID()))
	require.NoError(t, c.FailToolCall(tc.ID(), "boom"))

	events := c.ClearEvents()
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.EventName())
	}
	assert.Equal(t, []string{EventConversationStarted, EventToolCallApproved, EventToolExecutionFailed}, names)
	assert.True(t, events[1].(ToolCallApprovedEvent).Auto)

	assert.Empty(t, c.ClearEvents())
}

func TestRecordToolResults(t *testing.T) {
	c := NewConversation("conv-1")
	_, err := c.AddUserMessage("check disk")
	require.NoError(t, err)

	ok, bad, denied := newCall(false), newCall(false), newCall(true)
	require.NoError(t, c.AutoApproveToolCall(ok))
	require.NoError(t, c.AutoApproveToolCall(bad))
	require.NoError(t, c.RequestToolApproval(denied))
	c.AddAssistantTurn("running", []*ToolCall{ok, bad, denied})

	require.NoError(t, c.StartToolCall(ok.ID()))
	require.NoError(t, c.CompleteToolCall(ok.ID(), "42% used"))
	require.NoError(t, c.StartToolCall(bad.ID()))
	require.NoError(t, c.FailToolCall(bad.ID(), "permission denied"))

	msg := c.RecordToolResults()
	require.NotNil(t, msg)
	assert.Equal(t, RoleUser, msg.Role())
	assert.Equal(t, []ToolCallID{ok.ID(), bad.ID()}, msg.Content().ToolResultIDs())

	require.NoError(t, c.RejectToolCall(denied.ID(), "too risky"))
	msg = c.RecordToolResults()
	require.NotNil(t, msg)
	blocks := msg.Blocks()
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].IsError)
	assert.Contains(t, blocks[0].Text, "too risky")

	assert.Nil(t, c.RecordToolResults())
}

func TestAddAssistantTurn(t *testing.T) {
	c := NewConversation("conv-1")
	assert.Nil(t, c.AddAssistantTurn("  ", nil))

	tc := newCall(true)
	msg := c.AddAssistantTurn("", []*ToolCall{tc})
	require.NotNil(t, msg)
	assert.True(t, msg.Content().IsToolOnly())
	assert.Equal(t, []ToolCallID{tc.ID()}, msg.Content().ToolUseIDs())
}

func TestConversationJSONRoundTrip(t *testing.T) {
	c := NewConversation("conv-1")
	c.AddSystemMessage("be careful")
	_, err := c.AddUserMessage("restart nginx")
	require.NoError(t, err)
	tc := newCall(true)
	require.NoError(t, c.RequestToolApproval(tc))
	c.AddAssistantTurn("I need approval", []*ToolCall{tc})
	c.UpdateContext(PlatformContext{"tenant": "acme"})

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var restored Conversation
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, c.ID(), restored.ID())
	require.Len(t, restored.Messages(), 3)
	assert.Equal(t, "restart nginx", restored.Messages()[1].Text())
	assert.True(t, restored.HasPendingApprovals())
	assert.Equal(t, "acme", restored.Context()["tenant"])
	assert.Empty(t, restored.ClearEvents(), "events are never persisted")

	got, err := restored.ToolCall(tc.ID())
	require.NoError(t, err)
	assert.Equal(t, ToolCallPending, got.Status())
	assert.True(t, got.Input().Equal(tc.Input()))
}

func TestMessageContent(t *testing.T) {
	c := NewMessageContent(
		TextBlock("hello "),
		ToolUseBlock("t1", "shell_exec", NewToolInput(nil)),
		TextBlock("world"),
	)
	assert.Equal(t, "hello world", c.Text())
	assert.False(t, c.IsToolOnly())
	assert.True(t, c.HasToolBlocks())
	assert.False(t, c.IsBlank())

	assert.True(t, TextContent(" \n\t").IsBlank())
	assert.True(t, NewMessageContent(ToolResultBlock("t1", "", false)).IsToolOnly())
	assert.False(t, NewMessageContent().IsToolOnly())
}
