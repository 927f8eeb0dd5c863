package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// ToolsOptions configures the built-in tool catalogue.
type ToolsOptions struct {
	// Enabled controls whether built-in tools are offered at all. (default: true)
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Allow lists the built-in tools that may be loaded. Empty allows all.
	Allow []string `json:"allow" mapstructure:"allow"`
	// Deny lists built-in tools that are never loaded. Deny wins over Allow.
	Deny []string `json:"deny" mapstructure:"deny"`
	// Shell configures the shell_exec tool.
	Shell ShellToolOptions `json:"shell" mapstructure:"shell"`
}

// ShellToolOptions configures the shell_exec tool.
type ShellToolOptions struct {
	// Path is the shell binary. Commands run as `<path> -c <command>`.
	Path string `json:"path" mapstructure:"path"`
	// WorkDir is the default working directory. Empty uses the server's.
	WorkDir string `json:"work-dir" mapstructure:"work-dir"`
	// Timeout bounds a single command.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	// MaxOutputBytes truncates the captured output.
	MaxOutputBytes int `json:"max-output-bytes" mapstructure:"max-output-bytes"`
}

// NewToolsOptions returns a new instance of ToolsOptions.
func NewToolsOptions() *ToolsOptions {
	return &ToolsOptions{
		Enabled: true,
		Allow:   []string{},
		Deny:    []string{},
		Shell: ShellToolOptions{
			Path:           "/bin/sh",
			Timeout:        30 * time.Second,
			MaxOutputBytes: 16 * 1024,
		},
	}
}

// Validate checks ToolsOptions fields.
func (o *ToolsOptions) Validate() []error {
	var errs []error
	if o.Shell.Path == "" {
		errs = append(errs, fmt.Errorf("tools.shell.path is required"))
	}
	if o.Shell.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("tools.shell.timeout must be positive, got %s", o.Shell.Timeout))
	}
	if o.Shell.MaxOutputBytes <= 0 {
		errs = append(errs, fmt.Errorf("tools.shell.max-output-bytes must be positive"))
	}
	return errs
}

// AddFlags adds flags for the tools options.
// Allow and Deny lists are only read from the configuration file.
func (o *ToolsOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "tools.enabled", o.Enabled, "Offer the built-in tools.")
	fs.StringVar(&o.Shell.Path, "tools.shell.path", o.Shell.Path, "Shell used by the shell_exec tool.")
	fs.StringVar(&o.Shell.WorkDir, "tools.shell.work-dir", o.Shell.WorkDir, "Default working directory of the shell_exec tool.")
	fs.DurationVar(&o.Shell.Timeout, "tools.shell.timeout", o.Shell.Timeout, "Timeout of a single shell_exec command.")
	fs.IntVar(&o.Shell.MaxOutputBytes, "tools.shell.max-output-bytes", o.Shell.MaxOutputBytes, "Maximum captured output of a shell_exec command.")
}
