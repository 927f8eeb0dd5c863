package v1

import (
	"errors"
	"net/http"

	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/errorx"
)

// Warden handler error codes.
// Code format: 1XXYYZ
//   - 1:  module prefix (warden handler)
//   - XX: resource group (00=common, 01=conversation, 02=approval, 03=tool, 04=provider)
//   - YY: sequential error number
//   - Z:  reserved (0)

const (
	// Common request errors (100xxx).
	ErrBind            = 100001
	ErrValidation      = 100002
	ErrInternal        = 100003
	ErrInvalidArgument = 100004

	// Conversation errors (1001xx).
	ErrConversationNotFound = 100101
	ErrConversationBlocked  = 100102
	ErrRuntimeInvocation    = 100103
	ErrConversationList     = 100104

	// Approval errors (1002xx).
	ErrToolCallNotFound       = 100201
	ErrInvalidStateTransition = 100202

	// Tool errors (1003xx).
	ErrToolNotFound     = 100301
	ErrInvalidToolInput = 100302
)

func init() {
	// Common.
	errorx.MustRegister(newCoder(ErrBind, http.StatusBadRequest, "Request body binding failed"))
	errorx.MustRegister(newCoder(ErrValidation, http.StatusBadRequest, "Request validation failed"))
	errorx.MustRegister(newCoder(ErrInternal, http.StatusInternalServerError, "Internal server error"))
	errorx.MustRegister(newCoder(ErrInvalidArgument, http.StatusBadRequest, "Invalid argument"))

	// Conversation.
	errorx.MustRegister(newCoder(ErrConversationNotFound, http.StatusNotFound, "Conversation not found"))
	errorx.MustRegister(newCoder(ErrConversationBlocked, http.StatusConflict, "Conversation has pending approvals"))
	errorx.MustRegister(newCoder(ErrRuntimeInvocation, http.StatusBadGateway, "Runtime invocation failed"))
	errorx.MustRegister(newCoder(ErrConversationList, http.StatusInternalServerError, "Failed to list conversations"))

	// Approval.
	errorx.MustRegister(newCoder(ErrToolCallNotFound, http.StatusNotFound, "Tool call not found"))
	errorx.MustRegister(newCoder(ErrInvalidStateTransition, http.StatusConflict, "Invalid tool call state transition"))

	// Tool.
	errorx.MustRegister(newCoder(ErrToolNotFound, http.StatusNotFound, "Tool not found"))
	errorx.MustRegister(newCoder(ErrInvalidToolInput, http.StatusBadRequest, "Invalid tool input"))
}

// codeOf maps a domain error to its handler code.
func codeOf(err error) int {
	switch {
	case errors.Is(err, errno.ErrConversationNotFound):
		return ErrConversationNotFound
	case errors.Is(err, errno.ErrConversationBlocked):
		return ErrConversationBlocked
	case errors.Is(err, errno.ErrRuntimeInvocation):
		return ErrRuntimeInvocation
	case errors.Is(err, errno.ErrToolCallNotFound):
		return ErrToolCallNotFound
	case errors.Is(err, errno.ErrInvalidStateTransition):
		return ErrInvalidStateTransition
	case errors.Is(err, errno.ErrToolNotFound):
		return ErrToolNotFound
	case errors.Is(err, errno.ErrInvalidToolInput):
		return ErrInvalidToolInput
	case errors.Is(err, errno.ErrInvalidArgument):
		return ErrInvalidArgument
	default:
		return ErrInternal
	}
}

// wrap attaches the handler code matching err.
func wrap(err error, format string, args ...any) error {
	return errorx.WrapC(err, codeOf(err), format, args...)
}

type coder struct {
	code int
	http int
	msg  string
}

func newCoder(code, httpStatus int, msg string) *coder {
	return &coder{code: code, http: httpStatus, msg: msg}
}

func (c *coder) Code() int         { return c.code }
func (c *coder) HTTPStatus() int   { return c.http }
func (c *coder) String() string    { return c.msg }
func (c *coder) Reference() string { return "" }
