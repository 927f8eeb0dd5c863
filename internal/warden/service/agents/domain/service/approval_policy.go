package service

import (
	"fmt"
	"path"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
)

// ApprovalPolicy decides whether a proposed tool call needs a human decision.
//
// The tool's own RequiresApproval flag always wins. Patterns can only make
// the policy stricter: RequireApproval adds tools to the approval set, while
// AutoApprove merely documents that a tool is expected to run unattended and
// never relaxes a tool that requires approval. What the runtime suggested is
// never authoritative.
//
// Patterns use path.Match syntax, e.g. "shell_*" or "github__*".
type ApprovalPolicy struct {
	RequireApproval []string `json:"require_approval,omitempty" mapstructure:"require-approval"`
	AutoApprove     []string `json:"auto_approve,omitempty"     mapstructure:"auto-approve"`
}

// PolicyDecision is the outcome of ApprovalPolicy.Decide.
type PolicyDecision struct {
	RequiresApproval bool
	Reason           string
	// Overridden reports that the runtime suggested the opposite.
	Overridden bool
}

// Decide is a pure function of the tool, the configured patterns and the
// runtime suggestion.
func (p *ApprovalPolicy) Decide(tool entity.Tool, suggested bool) PolicyDecision {
	d := p.decide(tool)
	d.Overridden = d.RequiresApproval != suggested
	return d
}

func (p *ApprovalPolicy) decide(tool entity.Tool) PolicyDecision {
	if tool.RequiresApproval() {
		return PolicyDecision{RequiresApproval: true, Reason: "tool requires approval"}
	}
	if p == nil {
		return PolicyDecision{Reason: "default policy"}
	}
	if pattern, ok := matchPatterns(p.RequireApproval, tool.Name()); ok {
		return PolicyDecision{RequiresApproval: true, Reason: fmt.Sprintf("matches require-approval pattern %q", pattern)}
	}
	if pattern, ok := matchPatterns(p.AutoApprove, tool.Name()); ok {
		return PolicyDecision{Reason: fmt.Sprintf("matches auto-approve pattern %q", pattern)}
	}
	return PolicyDecision{Reason: "default policy"}
}

// Validate reports malformed patterns.
func (p *ApprovalPolicy) Validate() []error {
	var errs []error
	for _, list := range [][]string{p.RequireApproval, p.AutoApprove} {
		for _, pattern := range list {
			if _, err := path.Match(pattern, ""); err != nil {
				errs = append(errs, fmt.Errorf("invalid approval pattern %q: %w", pattern, err))
			}
		}
	}
	return errs
}

func matchPatterns(patterns []string, name string) (string, bool) {
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if pattern == name {
			return pattern, true
		}
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return pattern, true
		}
	}
	return "", false
}
