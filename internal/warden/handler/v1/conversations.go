package v1

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/kiosk404/warden/internal/pkg/core"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service"
	"github.com/kiosk404/warden/pkg/errorx"
	"github.com/kiosk404/warden/pkg/logger"
)

// HeaderConversationID carries the conversation of a request, also on
// streamed replies before the first event.
const HeaderConversationID = "X-Conversation-Id"

// ToolResolver selects request tools from the server catalogue by name.
type ToolResolver interface {
	Resolve(names []string) ([]entity.Tool, error)
}

// ConversationHandler handles the conversation and approval REST API.
// Requests that touch the same conversation are serialized.
type ConversationHandler struct {
	agents    service.AgentService
	approvals service.ApprovalService
	tools     ToolResolver
	locks     *keyedMutex
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(agents service.AgentService, approvals service.ApprovalService, tools ToolResolver) *ConversationHandler {
	return &ConversationHandler{
		agents:    agents,
		approvals: approvals,
		tools:     tools,
		locks:     newKeyedMutex(),
	}
}

// Execute handles POST /v1/conversations.
func (h *ConversationHandler) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind execute request"), nil)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		core.WriteResponse(c, errorx.WithCode(ErrValidation, "content is required"), nil)
		return
	}
	tools, err := h.tools.Resolve(req.Tools)
	if err != nil {
		core.WriteResponse(c, wrap(err, "resolve tools"), nil)
		return
	}

	id := entity.ConversationID(strings.TrimSpace(req.ConversationID))
	if id == "" {
		id = entity.NewConversationID()
	}
	unlock := h.locks.Lock(string(id))
	defer unlock()

	agentReq := &entity.AgentRequest{
		Content:        req.Content,
		Messages:       req.Messages,
		ConversationID: id,
		Context:        req.Context,
		Tools:          tools,
		SystemPrompt:   req.SystemPrompt,
		Stream:         req.Stream,
	}
	c.Header(HeaderConversationID, string(id))

	if req.Stream {
		// The turn outlives the client: a disconnect stops delivery, not the
		// model call or the save.
		sr, err := h.agents.ExecuteStream(context.WithoutCancel(c.Request.Context()), agentReq)
		if err != nil {
			core.WriteResponse(c, wrap(err, "execute conversation %s", id), nil)
			return
		}
		h.stream(c, sr)
		return
	}

	resp, err := h.agents.Execute(c.Request.Context(), agentReq)
	if err != nil {
		core.WriteResponse(c, wrap(err, "execute conversation %s", id), nil)
		return
	}
	core.WriteResponse(c, nil, resp)
}

// stream relays the events as server-sent events named after the event
// type. After a disconnect the remaining events are drained unsent.
func (h *ConversationHandler) stream(c *gin.Context, sr *schema.StreamReader[*entity.StreamEvent]) {
	defer sr.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	w := c.Writer
	gone := false
	for {
		event, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			logger.Warn("[Conversations] stream recv error: %v", err)
			event = entity.ErrorEvent(err.Error())
		}

		if !gone {
			if c.Request.Context().Err() != nil {
				gone = true
			} else if werr := sse.Encode(w, sse.Event{Event: string(event.Type), Data: event}); werr != nil {
				logger.Warn("[Conversations] write sse event failed: %v", werr)
				gone = true
			} else {
				w.Flush()
			}
		}
		if err != nil || event.IsTerminal() {
			return
		}
	}
}

// Resume handles POST /v1/conversations/:id/resume.
func (h *ConversationHandler) Resume(c *gin.Context) {
	id, err := entity.ParseConversationID(c.Param("id"))
	if err != nil {
		core.WriteResponse(c, wrap(err, "parse conversation id"), nil)
		return
	}
	var req ResumeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind resume request"), nil)
			return
		}
	}
	tools, err := h.tools.Resolve(req.Tools)
	if err != nil {
		core.WriteResponse(c, wrap(err, "resolve tools"), nil)
		return
	}

	unlock := h.locks.Lock(string(id))
	defer unlock()

	resp, err := h.agents.Resume(c.Request.Context(), &entity.ResumeRequest{
		ConversationID: id,
		Context:        req.Context,
		Tools:          tools,
		SystemPrompt:   req.SystemPrompt,
	})
	if err != nil {
		core.WriteResponse(c, wrap(err, "resume conversation %s", id), nil)
		return
	}
	core.WriteResponse(c, nil, resp)
}

// Get handles GET /v1/conversations/:id.
func (h *ConversationHandler) Get(c *gin.Context) {
	id, err := entity.ParseConversationID(c.Param("id"))
	if err != nil {
		core.WriteResponse(c, wrap(err, "parse conversation id"), nil)
		return
	}
	conv, err := h.agents.GetConversation(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, wrap(err, "get conversation %s", id), nil)
		return
	}
	core.WriteResponse(c, nil, conversationResponse(conv))
}

// List handles GET /v1/conversations?limit=N.
func (h *ConversationHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			core.WriteResponse(c, errorx.WithCode(ErrValidation, "limit must be a non-negative integer"), nil)
			return
		}
		limit = n
	}
	ids, err := h.agents.ListConversations(c.Request.Context(), limit)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrConversationList, "list conversations"), nil)
		return
	}
	if ids == nil {
		ids = []entity.ConversationID{}
	}
	core.WriteResponse(c, nil, gin.H{"data": ids})
}

// Delete handles DELETE /v1/conversations/:id.
func (h *ConversationHandler) Delete(c *gin.Context) {
	id, err := entity.ParseConversationID(c.Param("id"))
	if err != nil {
		core.WriteResponse(c, wrap(err, "parse conversation id"), nil)
		return
	}
	unlock := h.locks.Lock(string(id))
	defer unlock()

	if err := h.agents.DeleteConversation(c.Request.Context(), id); err != nil {
		core.WriteResponse(c, wrap(err, "delete conversation %s", id), nil)
		return
	}
	core.WriteResponse(c, nil, gin.H{"id": id, "deleted": true})
}
