package v1

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/warden/internal/pkg/core"
	"github.com/kiosk404/warden/internal/warden/service/agents"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/echo"
	"github.com/kiosk404/warden/internal/warden/service/tools"
	"github.com/kiosk404/warden/pkg/utils/json"
)

type fakeProviders struct{}

func (fakeProviders) Default() string     { return "echo" }
func (fakeProviders) Providers() []string { return []string{"echo", "openai"} }

func dangerTool() entity.Tool {
	return tools.Definition{
		Name:             "danger",
		Description:      "does something risky",
		Parameters:       []tools.ParameterDef{{Name: "x", Type: "number", Required: true}},
		RequiresApproval: true,
		Handler: func(_ context.Context, in entity.ToolInput, _ entity.PlatformContext) (string, error) {
			v, _ := in.Get("x")
			return fmt.Sprintf("ran with %v", v), nil
		},
	}.Build()
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mod, err := (&agents.Config{StoreType: agents.StoreMemory}).Complete().New(context.Background(), agents.Dependencies{
		Runtime: echo.NewAdapter("echo-1", runtime.NormalizeOptions{KeepToolBlocks: true, PairToolBlocks: true}),
	})
	require.NoError(t, err)

	catalogue := tools.NewCatalogue([]entity.Tool{
		tools.CurrentTime(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }).Build(),
		dangerTool(),
	})

	conv := NewConversationHandler(mod.Agents, mod.Approvals, catalogue)
	catalog := NewCatalogHandler(catalogue, fakeProviders{})

	g := gin.New()
	api := g.Group("/v1")
	api.POST("/conversations", conv.Execute)
	api.GET("/conversations", conv.List)
	api.GET("/conversations/:id", conv.Get)
	api.DELETE("/conversations/:id", conv.Delete)
	api.POST("/conversations/:id/resume", conv.Resume)
	api.GET("/conversations/:id/approvals", conv.ListApprovals)
	api.POST("/conversations/:id/approvals", conv.Decide)
	api.POST("/conversations/:id/approvals/approve-all", conv.ApproveAll)
	api.POST("/conversations/:id/approvals/reject-all", conv.RejectAll)
	api.GET("/tools", catalog.Tools)
	api.GET("/providers", catalog.Providers)
	return g
}

func do(t *testing.T, g *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestExecuteEcho(t *testing.T) {
	g := newTestEngine(t)

	w := do(t, g, http.MethodPost, "/v1/conversations", ExecuteRequest{Content: "hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[entity.AgentResponse](t, w)
	assert.Equal(t, "echo: hello", resp.Text)
	assert.True(t, resp.IsComplete)
	assert.Equal(t, string(resp.ConversationID), w.Header().Get(HeaderConversationID))

	w = do(t, g, http.MethodGet, "/v1/conversations/"+string(resp.ConversationID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	conv := decode[ConversationResponse](t, w)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, entity.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "echo: hello", conv.Messages[1].Text)

	w = do(t, g, http.MethodGet, "/v1/conversations?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(resp.ConversationID))
}

func TestApprovalRoundTrip(t *testing.T) {
	g := newTestEngine(t)

	w := do(t, g, http.MethodPost, "/v1/conversations", ExecuteRequest{
		ConversationID: "conv-1",
		Content:        `/tool danger {"x": 7}`,
		Tools:          []string{"danger"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[entity.AgentResponse](t, w)
	require.True(t, resp.HasPendingApprovals)
	require.Len(t, resp.ToolCalls, 1)
	callID := resp.ToolCalls[0].ID

	// Blocked while pending.
	w = do(t, g, http.MethodPost, "/v1/conversations", ExecuteRequest{ConversationID: "conv-1", Content: "again"})
	require.Equal(t, http.StatusConflict, w.Code)
	errResp := decode[core.ErrResponse](t, w)
	assert.Equal(t, ErrConversationBlocked, errResp.Code)
	assert.EqualValues(t, 1, errResp.Details["pending_tool_calls"])

	w = do(t, g, http.MethodPost, "/v1/conversations/conv-1/resume", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, g, http.MethodGet, "/v1/conversations/conv-1/approvals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(callID))

	w = do(t, g, http.MethodPost, "/v1/conversations/conv-1/approvals", ApprovalsRequest{
		Approvals: []entity.ApprovalDecision{{ToolCallID: callID, Approved: true}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[entity.AgentResponse](t, w).HasPendingApprovals)

	w = do(t, g, http.MethodPost, "/v1/conversations/conv-1/resume", ResumeRequest{Tools: []string{"danger"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resumed := decode[entity.AgentResponse](t, w)
	assert.Equal(t, "tool call "+string(callID)+" returned: ran with 7", resumed.Text)

	w = do(t, g, http.MethodGet, "/v1/conversations/conv-1", nil)
	conv := decode[ConversationResponse](t, w)
	require.Len(t, conv.ToolCalls, 1)
	assert.Equal(t, entity.ToolCallCompleted, conv.ToolCalls[0].Status)
	assert.False(t, conv.HasPendingApprovals)
}

func TestRejectAll(t *testing.T) {
	g := newTestEngine(t)

	w := do(t, g, http.MethodPost, "/v1/conversations", ExecuteRequest{
		ConversationID: "conv-2",
		Content:        `/tool danger {"x": 1}`,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, g, http.MethodPost, "/v1/conversations/conv-2/approvals/reject-all", RejectAllRequest{Reason: "too risky"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, g, http.MethodGet, "/v1/conversations/conv-2", nil)
	conv := decode[ConversationResponse](t, w)
	require.Len(t, conv.ToolCalls, 1)
	assert.Equal(t, entity.ToolCallRejected, conv.ToolCalls[0].Status)
	assert.Equal(t, "too risky", conv.ToolCalls[0].RejectionReason)
}

func TestUnknownToolCall(t *testing.T) {
	g := newTestEngine(t)
	do(t, g, http.MethodPost, "/v1/conversations", ExecuteRequest{ConversationID: "conv-3", Content: `/tool danger {"x": 1}`})

	w := do(t, g, http.MethodPost, "/v1/conversations/conv-3/approvals", ApprovalsRequest{
		Approvals: []entity.ApprovalDecision{{ToolCallID: "call_missing", Approved: true}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrToolCallNotFound, decode[core.ErrResponse](t, w).Code)
}

func TestRequestErrors(t *testing.T) {
	g := newTestEngine(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   int
	}{
		{"bad json", http.MethodPost, "/v1/conversations", `{"content":`, http.StatusBadRequest, ErrBind},
		{"empty content", http.MethodPost, "/v1/conversations", ExecuteRequest{Content: "  "}, http.StatusBadRequest, ErrValidation},
		{"unknown tool", http.MethodPost, "/v1/conversations", ExecuteRequest{Content: "hi", Tools: []string{"nope"}}, http.StatusNotFound, ErrToolNotFound},
		{"bad role", http.MethodPost, "/v1/conversations", ExecuteRequest{Content: "hi", Messages: []entity.HistoryMessage{{Role: "robot", Content: "x"}}}, http.StatusBadRequest, ErrInvalidArgument},
		{"missing conversation", http.MethodGet, "/v1/conversations/none", nil, http.StatusNotFound, ErrConversationNotFound},
		{"resume missing", http.MethodPost, "/v1/conversations/none/resume", nil, http.StatusNotFound, ErrConversationNotFound},
		{"bad limit", http.MethodGet, "/v1/conversations?limit=-1", nil, http.StatusBadRequest, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, g, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[core.ErrResponse](t, w).Code)
		})
	}
}

func TestDeleteConversation(t *testing.T) {
	g := newTestEngine(t)
	do(t, g, http.MethodPost, "/v1/conversations", ExecuteRequest{ConversationID: "conv-4", Content: "hi"})

	w := do(t, g, http.MethodDelete, "/v1/conversations/conv-4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, g, http.MethodGet, "/v1/conversations/conv-4", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExecuteStream(t *testing.T) {
	g := newTestEngine(t)

	w := do(t, g, http.MethodPost, "/v1/conversations", ExecuteRequest{ConversationID: "conv-5", Content: "one two", Stream: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "conv-5", w.Header().Get(HeaderConversationID))

	body := w.Body.String()
	first := strings.Index(body, "event:message_start")
	last := strings.Index(body, "event:message_end")
	require.GreaterOrEqual(t, first, 0, body)
	require.Greater(t, last, first, body)
	assert.Equal(t, 3, strings.Count(body, "event:text_delta"))

	w = do(t, g, http.MethodGet, "/v1/conversations/conv-5", nil)
	conv := decode[ConversationResponse](t, w)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "echo: one two", conv.Messages[1].Text)
}

func TestExecuteStreamSurvivesClientDisconnect(t *testing.T) {
	g := newTestEngine(t)

	raw, err := json.Marshal(ExecuteRequest{ConversationID: "conv-6", Content: "still here", Stream: true})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/conversations", bytes.NewReader(raw)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(httptest.NewRecorder(), req)

	w := do(t, g, http.MethodGet, "/v1/conversations/conv-6", nil)
	require.Equal(t, http.StatusOK, w.Code)
	conv := decode[ConversationResponse](t, w)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "echo: still here", conv.Messages[1].Text)
}

func TestCatalog(t *testing.T) {
	g := newTestEngine(t)

	w := do(t, g, http.MethodGet, "/v1/tools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	infos := decode[struct {
		Data []tools.Info `json:"data"`
	}](t, w)
	require.Len(t, infos.Data, 2)
	assert.Equal(t, "danger", infos.Data[1].Name)
	assert.True(t, infos.Data[1].RequiresApproval)

	w = do(t, g, http.MethodGet, "/v1/providers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ProvidersResponse{Default: "echo", Providers: []string{"echo", "openai"}}, decode[ProvidersResponse](t, w))
}

func TestKeyedMutexSerializes(t *testing.T) {
	k := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("same")
			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, k.size())

	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())
	unlockA()
	unlockB()
	assert.Zero(t, k.size())
}
