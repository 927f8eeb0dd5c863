package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApprovalPolicyDecide(t *testing.T) {
	policy := &ApprovalPolicy{
		RequireApproval: []string{"shell_*", "kubectl_delete"},
		AutoApprove:     []string{"*"},
	}
	tests := []struct {
		name           string
		policy         *ApprovalPolicy
		tool           *fakeTool
		suggested      bool
		wantApproval   bool
		wantOverridden bool
	}{
		{"tool flag wins over runtime", policy, &fakeTool{name: "deploy", approval: true}, false, true, true},
		{"tool flag wins over auto-approve", policy, &fakeTool{name: "deploy", approval: true}, true, true, false},
		{"pattern tightens", policy, &fakeTool{name: "shell_exec"}, false, true, true},
		{"exact pattern", policy, &fakeTool{name: "kubectl_delete"}, true, true, false},
		{"runtime cannot force approval", policy, &fakeTool{name: "current_time"}, true, false, true},
		{"default", policy, &fakeTool{name: "current_time"}, false, false, false},
		{"nil policy", nil, &fakeTool{name: "shell_exec"}, false, false, false},
		{"nil policy keeps tool flag", nil, &fakeTool{name: "shell_exec", approval: true}, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.policy.Decide(tt.tool, tt.suggested)
			assert.Equal(t, tt.wantApproval, d.RequiresApproval)
			assert.Equal(t, tt.wantOverridden, d.Overridden)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestApprovalPolicyValidate(t *testing.T) {
	assert.Empty(t, (&ApprovalPolicy{RequireApproval: []string{"shell_*"}}).Validate())
	assert.Len(t, (&ApprovalPolicy{AutoApprove: []string{"[a-"}}).Validate(), 1)
}
