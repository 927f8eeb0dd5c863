package options

import (
	"fmt"
	"path"

	"github.com/spf13/pflag"
)

// ApprovalOptions tightens which tool calls need a human decision.
// Patterns use path.Match syntax, e.g. "shell_*".
type ApprovalOptions struct {
	RequireApproval []string `json:"require-approval" mapstructure:"require-approval"`
	AutoApprove     []string `json:"auto-approve"     mapstructure:"auto-approve"`
}

func NewApprovalOptions() *ApprovalOptions {
	return &ApprovalOptions{}
}

func (o *ApprovalOptions) Validate() []error {
	var errs []error
	for _, list := range [][]string{o.RequireApproval, o.AutoApprove} {
		for _, pattern := range list {
			if _, err := path.Match(pattern, ""); err != nil {
				errs = append(errs, fmt.Errorf("invalid approval pattern %q: %w", pattern, err))
			}
		}
	}
	return errs
}

func (o *ApprovalOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&o.RequireApproval, "approval.require-approval", o.RequireApproval, "Tool name patterns that always require approval.")
	fs.StringSliceVar(&o.AutoApprove, "approval.auto-approve", o.AutoApprove, "Tool name patterns expected to run unattended. Never relaxes a tool that requires approval.")
}
