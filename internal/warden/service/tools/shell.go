package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	jsonutil "github.com/kiosk404/warden/pkg/utils/json"
)

const ShellExecName = "shell_exec"

// ShellResult is the output of a shell_exec call.
type ShellResult struct {
	Command   string `json:"command"`
	Dir       string `json:"dir,omitempty"`
	ExitCode  int    `json:"exit_code"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	Truncated bool   `json:"truncated,omitempty"`
	Duration  string `json:"duration"`
}

// ShellExec returns the shell_exec tool. Every call requires approval.
// A non-zero exit is reported in the result; only a command that could not
// run or timed out fails the call.
func ShellExec(opts options.ShellToolOptions) Definition {
	return Definition{
		Name:        ShellExecName,
		Description: "Run a shell command on the server host and return its exit code and output.",
		Parameters: []ParameterDef{
			{Name: "command", Type: "string", Description: "Shell command to execute", Required: true},
			{Name: "dir", Type: "string", Description: "Working directory (default: the configured one)"},
		},
		RequiresApproval: true,
		Handler: func(ctx context.Context, input entity.ToolInput, _ entity.PlatformContext) (string, error) {
			command, _ := input.GetString("command")
			command = strings.TrimSpace(command)
			if command == "" {
				return "", errors.New("command is required")
			}
			dir, _ := input.GetString("dir")
			if dir == "" {
				dir = opts.WorkDir
			}

			res, err := runShell(ctx, opts, command, dir)
			if err != nil {
				return "", err
			}
			out, err := jsonutil.MarshalString(res)
			if err != nil {
				return "", fmt.Errorf("encoding result: %w", err)
			}
			return out, nil
		},
	}
}

func runShell(ctx context.Context, opts options.ShellToolOptions, command, dir string) (*ShellResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, opts.Path, "-c", command)
	cmd.Dir = dir
	stdout := newLimitedBuffer(opts.MaxOutputBytes)
	stderr := newLimitedBuffer(opts.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	if runCtx.Err() != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("command timed out after %s", opts.Timeout)
		}
		return nil, runCtx.Err()
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("running command: %w", err)
	}
	return &ShellResult{
		Command:   command,
		Dir:       dir,
		ExitCode:  cmd.ProcessState.ExitCode(),
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.truncated || stderr.truncated,
		Duration:  time.Since(start).Round(time.Millisecond).String(),
	}, nil
}

// limitedBuffer keeps the first max bytes written and drops the rest.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	max       int
	truncated bool
}

func newLimitedBuffer(max int) *limitedBuffer {
	return &limitedBuffer{max: max}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room := b.max - len(b.buf)
	if room < len(p) {
		b.truncated = true
		if room > 0 {
			b.buf = append(b.buf, p[:room]...)
		}
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
