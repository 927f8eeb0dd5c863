package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/kiosk404/warden/internal/pkg/core"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/pkg/errorx"
)

// ListApprovals handles GET /v1/conversations/:id/approvals.
func (h *ConversationHandler) ListApprovals(c *gin.Context) {
	id, err := entity.ParseConversationID(c.Param("id"))
	if err != nil {
		core.WriteResponse(c, wrap(err, "parse conversation id"), nil)
		return
	}
	pending, err := h.approvals.ListPending(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, wrap(err, "list approvals of %s", id), nil)
		return
	}
	core.WriteResponse(c, nil, gin.H{"data": pending})
}

// Decide handles POST /v1/conversations/:id/approvals.
func (h *ConversationHandler) Decide(c *gin.Context) {
	id, err := entity.ParseConversationID(c.Param("id"))
	if err != nil {
		core.WriteResponse(c, wrap(err, "parse conversation id"), nil)
		return
	}
	var req ApprovalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind approvals request"), nil)
		return
	}

	unlock := h.locks.Lock(string(id))
	defer unlock()

	resp, err := h.approvals.Execute(c.Request.Context(), &entity.ApprovalRequest{
		ConversationID: id,
		Approvals:      req.Approvals,
	})
	if err != nil {
		core.WriteResponse(c, wrap(err, "apply approvals to %s", id), nil)
		return
	}
	core.WriteResponse(c, nil, resp)
}

// ApproveAll handles POST /v1/conversations/:id/approvals/approve-all.
func (h *ConversationHandler) ApproveAll(c *gin.Context) {
	id, err := entity.ParseConversationID(c.Param("id"))
	if err != nil {
		core.WriteResponse(c, wrap(err, "parse conversation id"), nil)
		return
	}
	unlock := h.locks.Lock(string(id))
	defer unlock()

	resp, err := h.approvals.ApproveAll(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, wrap(err, "approve all calls of %s", id), nil)
		return
	}
	core.WriteResponse(c, nil, resp)
}

// RejectAll handles POST /v1/conversations/:id/approvals/reject-all.
func (h *ConversationHandler) RejectAll(c *gin.Context) {
	id, err := entity.ParseConversationID(c.Param("id"))
	if err != nil {
		core.WriteResponse(c, wrap(err, "parse conversation id"), nil)
		return
	}
	var req RejectAllRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind reject-all request"), nil)
			return
		}
	}

	unlock := h.locks.Lock(string(id))
	defer unlock()

	resp, err := h.approvals.RejectAll(c.Request.Context(), id, req.Reason)
	if err != nil {
		core.WriteResponse(c, wrap(err, "reject all calls of %s", id), nil)
		return
	}
	core.WriteResponse(c, nil, resp)
}
