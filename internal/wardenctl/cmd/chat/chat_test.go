package chat

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/warden/internal/warden/wardentest"
	"github.com/kiosk404/warden/internal/wardenctl/client"
	"github.com/kiosk404/warden/internal/wardenctl/cmd/util"
)

type testFactory struct{ c *client.Client }

func (f testFactory) Client() *client.Client { return f.c }

func newOptions(t *testing.T, input string) (*ChatOptions, *bytes.Buffer) {
	t.Helper()
	srv := wardentest.NewServer(t, wardentest.Options{})
	out := &bytes.Buffer{}
	o := NewChatOptions(testFactory{client.New(srv.URL, "", nil)}, util.IOStreams{
		In:     strings.NewReader(input),
		Out:    out,
		ErrOut: out,
	})
	require.NoError(t, o.Complete(nil))
	require.NoError(t, o.Validate())
	return o, out
}

func TestChatApprovesAndResumes(t *testing.T) {
	o, out := newOptions(t, "y\n")

	require.NoError(t, o.Run(context.Background(), []string{`/tool deploy {"service":"api"}`}))
	assert.Contains(t, out.String(), "calling deploy")
	assert.Contains(t, out.String(), `"service":"api"`)
	assert.Contains(t, out.String(), "returned: deployed api")
	assert.NotEmpty(t, o.ConversationID)
}

func TestChatInteractiveReject(t *testing.T) {
	o, out := newOptions(t, "hello\n/tool deploy {\"service\":\"db\"}\nnot during the freeze\n/quit\n")
	o.NoStream = true

	require.NoError(t, o.Run(context.Background(), nil))
	assert.Contains(t, out.String(), "echo: hello")
	assert.Contains(t, out.String(), "failed: tool call rejected by user: not during the freeze")
}

func TestChatApproveFlag(t *testing.T) {
	o, out := newOptions(t, "")
	o.Approve = "all"

	require.NoError(t, o.Run(context.Background(), []string{`/tool deploy {"service":"web"}`}))
	assert.Contains(t, out.String(), "returned: deployed web")

	o.Approve = "sometimes"
	assert.Error(t, o.Validate())
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		answer   string
		approved bool
		reason   string
	}{
		{"y\n", true, ""},
		{"YES", true, ""},
		{"", false, "rejected by operator"},
		{"n", false, "rejected by operator"},
		{"  too risky \n", false, "too risky"},
	}
	for _, tt := range tests {
		approved, reason := parseAnswer(tt.answer)
		assert.Equal(t, tt.approved, approved, tt.answer)
		assert.Equal(t, tt.reason, reason, tt.answer)
	}
}
