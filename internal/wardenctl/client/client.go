// Package client is a Go client of the warden REST API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kiosk404/warden/internal/pkg/core"
	v1 "github.com/kiosk404/warden/internal/warden/handler/v1"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/tools"
	"github.com/kiosk404/warden/pkg/utils/json"
)

// APIError is a non-2xx reply of the server.
type APIError struct {
	Status    int
	Code      int
	Message   string
	Reference string
	Details   map[string]any
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("server returned %d (code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client talks to one warden server.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New creates a client. A bare host:port gets the http scheme.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: httpClient,
	}
}

// Execute runs one non-streamed turn.
func (c *Client) Execute(ctx context.Context, req *v1.ExecuteRequest) (*entity.AgentResponse, error) {
	body := *req
	body.Stream = false
	var resp entity.AgentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/conversations", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resume continues a conversation whose tool calls are all decided.
func (c *Client) Resume(ctx context.Context, id string, req *v1.ResumeRequest) (*entity.AgentResponse, error) {
	if req == nil {
		req = &v1.ResumeRequest{}
	}
	var resp entity.AgentResponse
	if err := c.do(ctx, http.MethodPost, conversationPath(id, "resume"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (*v1.ConversationResponse, error) {
	var resp v1.ConversationResponse
	if err := c.do(ctx, http.MethodGet, conversationPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListConversations returns conversation IDs, most recently updated first.
func (c *Client) ListConversations(ctx context.Context, limit int) ([]string, error) {
	path := "/v1/conversations"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Data []string `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, conversationPath(id), nil, nil)
}

// ListApprovals returns the pending tool calls of a conversation.
func (c *Client) ListApprovals(ctx context.Context, id string) ([]entity.ToolCallView, error) {
	var resp struct {
		Data []entity.ToolCallView `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, conversationPath(id, "approvals"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Decide submits approval decisions. The batch is applied atomically.
func (c *Client) Decide(ctx context.Context, id string, decisions []entity.ApprovalDecision) (*entity.AgentResponse, error) {
	var resp entity.AgentResponse
	err := c.do(ctx, http.MethodPost, conversationPath(id, "approvals"), v1.ApprovalsRequest{Approvals: decisions}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ApproveAll(ctx context.Context, id string) (*entity.AgentResponse, error) {
	var resp entity.AgentResponse
	if err := c.do(ctx, http.MethodPost, conversationPath(id, "approvals", "approve-all"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RejectAll(ctx context.Context, id, reason string) (*entity.AgentResponse, error) {
	var resp entity.AgentResponse
	err := c.do(ctx, http.MethodPost, conversationPath(id, "approvals", "reject-all"), v1.RejectAllRequest{Reason: reason}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Tools lists the server tool catalogue.
func (c *Client) Tools(ctx context.Context) ([]tools.Info, error) {
	var resp struct {
		Data []tools.Info `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/tools", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) Providers(ctx context.Context) (*v1.ProvidersResponse, error) {
	var resp v1.ProvidersResponse
	if err := c.do(ctx, http.MethodGet, "/v1/providers", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func conversationPath(id string, parts ...string) string {
	segments := append([]string{"/v1/conversations", url.PathEscape(id)}, parts...)
	return strings.Join(segments, "/")
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body core.ErrResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{Status: status, Message: msg}
	}
	return &APIError{
		Status:    status,
		Code:      body.Code,
		Message:   body.Message,
		Reference: body.Reference,
		Details:   body.Details,
	}
}
