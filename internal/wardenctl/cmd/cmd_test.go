package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/kiosk404/warden/internal/warden/handler/v1"
	"github.com/kiosk404/warden/internal/warden/wardentest"
	"github.com/kiosk404/warden/internal/wardenctl/client"
)

func run(t *testing.T, server, stdin string, args ...string) string {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewWardenCtlCommand(strings.NewReader(stdin), out, out)
	cmd.SetArgs(append([]string{"--server", server}, args...))
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestWardenCtl(t *testing.T) {
	srv := wardentest.NewServer(t, wardentest.Options{})

	out := run(t, srv.URL, "", "chat", "--conversation", "ops-1", "--no-stream", "hello there")
	assert.Contains(t, out, "echo: hello there")

	out = run(t, srv.URL, "", "chat", "--conversation", "ops-2", "--approve=none", `/tool deploy {"service":"api"}`)
	assert.Contains(t, out, "failed: tool call rejected by user: rejected by operator")

	out = run(t, srv.URL, "", "list")
	assert.Contains(t, out, "ops-1")
	assert.Contains(t, out, "ops-2")

	out = run(t, srv.URL, "", "show", "ops-2")
	assert.Contains(t, out, "deploy")
	assert.Contains(t, out, "rejected")

	out = run(t, srv.URL, "", "tools")
	assert.Contains(t, out, "deploy")
	assert.Contains(t, out, "required")

	out = run(t, srv.URL, "", "providers")
	assert.Contains(t, out, "echo")
}

func TestApproveCommands(t *testing.T) {
	srv := wardentest.NewServer(t, wardentest.Options{})
	c := client.New(srv.URL, "", nil)
	ctx := context.Background()

	for _, id := range []string{"ops-3", "ops-4"} {
		_, err := c.Execute(ctx, &v1.ExecuteRequest{ConversationID: id, Content: `/tool deploy {"service":"db"}`})
		require.NoError(t, err)
	}

	out := run(t, srv.URL, "", "approvals", "ops-3")
	assert.Contains(t, out, `{"service":"db"}`)

	out = run(t, srv.URL, "", "approve", "ops-3", "--all", "--resume")
	assert.Contains(t, out, "approved (deploy)")
	assert.Contains(t, out, "returned: deployed db")

	pending, err := c.ListApprovals(ctx, "ops-4")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	out = run(t, srv.URL, "", "reject", "ops-4", string(pending[0].ID), "--reason", "freeze")
	assert.Contains(t, out, "rejected (deploy)")
	assert.Contains(t, out, "wardenctl resume ops-4")

	out = run(t, srv.URL, "", "resume", "ops-4")
	assert.Contains(t, out, "tool call rejected by user: freeze")

	out = run(t, srv.URL, "", "delete", "ops-3")
	assert.Contains(t, out, "conversation ops-3 deleted")
}

func TestHelpListsGroups(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewWardenCtlCommand(strings.NewReader(""), out, out)
	cmd.SetArgs([]string{"--help"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Approval Commands:")
	assert.Contains(t, out.String(), "approve")
}
