package entity

import (
	"time"

	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/utils/json"
)

// ToolCallStatus is the lifecycle state of a ToolCall.
//
// State machine:
//
//	PENDING → APPROVED → EXECUTING → COMPLETED | FAILED
//	PENDING → REJECTED
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallApproved  ToolCallStatus = "approved"
	ToolCallExecuting ToolCallStatus = "executing"
	ToolCallCompleted ToolCallStatus = "completed"
	ToolCallRejected  ToolCallStatus = "rejected"
	ToolCallFailed    ToolCallStatus = "failed"
)

// IsTerminal returns true once no further transition is possible.
func (s ToolCallStatus) IsTerminal() bool {
	return s == ToolCallCompleted || s == ToolCallRejected || s == ToolCallFailed
}

type toolCallAction string

const (
	actionApprove     toolCallAction = "approve"
	actionAutoApprove toolCallAction = "auto_approve"
	actionReject      toolCallAction = "reject"
	actionStart       toolCallAction = "start_execution"
	actionComplete    toolCallAction = "complete"
	actionFail        toolCallAction = "fail"
)

// toolCallTransitions is the complete transition table: every action has
// exactly one valid source state.
var toolCallTransitions = map[toolCallAction]struct{ from, to ToolCallStatus }{
	actionApprove:     {ToolCallPending, ToolCallApproved},
	actionAutoApprove: {ToolCallPending, ToolCallApproved},
	actionReject:      {ToolCallPending, ToolCallRejected},
	actionStart:       {ToolCallApproved, ToolCallExecuting},
	actionComplete:    {ToolCallExecuting, ToolCallCompleted},
	actionFail:        {ToolCallExecuting, ToolCallFailed},
}

// ToolCallSpec describes a tool call proposed by the runtime.
type ToolCallSpec struct {
	ID               ToolCallID
	ToolName         string
	Input            ToolInput
	Description      string
	Intent           string
	RequiresApproval bool
}

// ToolCall is a request from the model to run a named tool with structured
// input. Identity is the ID; Status and its companion fields are the only
// mutable state and change only through the transition methods.
type ToolCall struct {
	id               ToolCallID
	toolName         string
	input            ToolInput
	description      string
	intent           string
	requiresApproval bool

	status          ToolCallStatus
	rejectionReason string
	result          string
	err             string
	createdAt       time.Time
	updatedAt       time.Time
}

// NewToolCall creates a PENDING tool call. A missing ID is generated.
func NewToolCall(spec ToolCallSpec) *ToolCall {
	id := spec.ID
	if id == "" {
		id = NewToolCallID()
	}
	now := time.Now().UTC()
	return &ToolCall{
		id:               id,
		toolName:         spec.ToolName,
		input:            spec.Input,
		description:      spec.Description,
		intent:           spec.Intent,
		requiresApproval: spec.RequiresApproval,
		status:           ToolCallPending,
		createdAt:        now,
		updatedAt:        now,
	}
}

func (tc *ToolCall) ID() ToolCallID          { return tc.id }
func (tc *ToolCall) ToolName() string        { return tc.toolName }
func (tc *ToolCall) Input() ToolInput        { return tc.input }
func (tc *ToolCall) Description() string     { return tc.description }
func (tc *ToolCall) Intent() string          { return tc.intent }
func (tc *ToolCall) RequiresApproval() bool  { return tc.requiresApproval }
func (tc *ToolCall) Status() ToolCallStatus  { return tc.status }
func (tc *ToolCall) RejectionReason() string { return tc.rejectionReason }
func (tc *ToolCall) Result() string          { return tc.result }
func (tc *ToolCall) ErrorText() string       { return tc.err }
func (tc *ToolCall) CreatedAt() time.Time    { return tc.createdAt }
func (tc *ToolCall) UpdatedAt() time.Time    { return tc.updatedAt }

// Approve records a human approval.
func (tc *ToolCall) Approve() error {
	return tc.transition(actionApprove)
}

// AutoApprove approves a call that does not require human sign-off.
func (tc *ToolCall) AutoApprove() error {
	if tc.requiresApproval {
		return errno.InvalidStateTransition(string(tc.status), string(actionAutoApprove)).
			WithDetail("reason", "requires approval")
	}
	return tc.transition(actionAutoApprove)
}

// Reject records a human rejection.
func (tc *ToolCall) Reject(reason string) error {
	if err := tc.transition(actionReject); err != nil {
		return err
	}
	tc.rejectionReason = reason
	return nil
}

func (tc *ToolCall) StartExecution() error {
	return tc.transition(actionStart)
}

func (tc *ToolCall) Complete(result string) error {
	if err := tc.transition(actionComplete); err != nil {
		return err
	}
	tc.result = result
	return nil
}

func (tc *ToolCall) Fail(errText string) error {
	if err := tc.transition(actionFail); err != nil {
		return err
	}
	tc.err = errText
	return nil
}

func (tc *ToolCall) transition(action toolCallAction) error {
	t, ok := toolCallTransitions[action]
	if !ok || tc.status != t.from {
		return errno.InvalidStateTransition(string(tc.status), string(action))
	}
	tc.status = t.to
	tc.updatedAt = time.Now().UTC()
	return nil
}

// ToolCallView is the read-only projection of a ToolCall returned to callers.
type ToolCallView struct {
	ID               ToolCallID     `json:"id"`
	ToolName         string         `json:"tool_name"`
	Input            map[string]any `json:"input"`
	Description      string         `json:"description,omitempty"`
	Intent           string         `json:"intent,omitempty"`
	RequiresApproval bool           `json:"requires_approval"`
	Status           ToolCallStatus `json:"status"`
	RejectionReason  string         `json:"rejection_reason,omitempty"`
	Result           string         `json:"result,omitempty"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (tc *ToolCall) View() ToolCallView {
	return ToolCallView{
		ID:               tc.id,
		ToolName:         tc.toolName,
		Input:            tc.input.Map(),
		Description:      tc.description,
		Intent:           tc.intent,
		RequiresApproval: tc.requiresApproval,
		Status:           tc.status,
		RejectionReason:  tc.rejectionReason,
		Result:           tc.result,
		Error:            tc.err,
		CreatedAt:        tc.createdAt,
		UpdatedAt:        tc.updatedAt,
	}
}

// ToolCallViews projects a list of tool calls.
func ToolCallViews(calls []*ToolCall) []ToolCallView {
	views := make([]ToolCallView, 0, len(calls))
	for _, tc := range calls {
		views = append(views, tc.View())
	}
	return views
}

type toolCallJSON struct {
	ID               ToolCallID     `json:"id"`
	ToolName         string         `json:"tool_name"`
	Input            ToolInput      `json:"input"`
	Description      string         `json:"description,omitempty"`
	Intent           string         `json:"intent,omitempty"`
	RequiresApproval bool           `json:"requires_approval"`
	Status           ToolCallStatus `json:"status"`
	RejectionReason  string         `json:"rejection_reason,omitempty"`
	Result           string         `json:"result,omitempty"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (tc *ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(toolCallJSON{
		ID:               tc.id,
		ToolName:         tc.toolName,
		Input:            tc.input,
		Description:      tc.description,
		Intent:           tc.intent,
		RequiresApproval: tc.requiresApproval,
		Status:           tc.status,
		RejectionReason:  tc.rejectionReason,
		Result:           tc.result,
		Error:            tc.err,
		CreatedAt:        tc.createdAt,
		UpdatedAt:        tc.updatedAt,
	})
}

func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var dto toolCallJSON
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	*tc = ToolCall{
		id:               dto.ID,
		toolName:         dto.ToolName,
		input:            dto.Input,
		description:      dto.Description,
		intent:           dto.Intent,
		requiresApproval: dto.RequiresApproval,
		status:           dto.Status,
		rejectionReason:  dto.RejectionReason,
		result:           dto.Result,
		err:              dto.Error,
		createdAt:        dto.CreatedAt,
		updatedAt:        dto.UpdatedAt,
	}
	return nil
}
