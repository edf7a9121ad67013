package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ShellExec runs shell commands in the workspace with a hard timeout and
// an advisory denylist. The denylist is a usability guard against
// obviously destructive commands, not a security sandbox.
type ShellExec struct {
	workingDir string
	deniedCmds []string
	timeout    time.Duration
}

// DefaultDeniedPatterns blocks destructive recursive deletes, privilege
// escalation, power control, and raw device writes.
var DefaultDeniedPatterns = []string{
	"rm -rf /",
	"sudo",
	"shutdown",
	"reboot",
	"> /dev/",
	"mkfs",
}

const (
	defaultShellTimeout = 120 * time.Second
	maxShellTimeout     = 300 * time.Second
)

// NewShellExec creates a shell executor. Zero timeout means the default;
// anything above the cap is clamped. Empty denied means the built-in
// denylist.
func NewShellExec(workingDir string, denied []string, timeout time.Duration) *ShellExec {
	if timeout <= 0 {
		timeout = defaultShellTimeout
	}
	if timeout > maxShellTimeout {
		timeout = maxShellTimeout
	}
	if len(denied) == 0 {
		denied = DefaultDeniedPatterns
	}
	return &ShellExec{
		workingDir: workingDir,
		deniedCmds: denied,
		timeout:    timeout,
	}
}

// Exec runs a command via "sh -c" and returns combined stdout+stderr.
// A denylist match short-circuits with an error result. On timeout the
// command is abandoned and a fixed timed-out text is returned; no
// partial output is salvaged.
func (s *ShellExec) Exec(ctx context.Context, command string) string {
	for _, denied := range s.deniedCmds {
		if strings.Contains(command, denied) {
			return fmt.Sprintf("Error: command blocked, matches denied pattern %q", denied)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if s.workingDir != "" {
		cmd.Dir = s.workingDir
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("Error: command timed out after %s", s.timeout)
	}

	out := strings.TrimSpace(buf.String())
	if err != nil && out == "" {
		return "Error: " + err.Error()
	}
	if out == "" {
		return "(no output)"
	}
	return out
}
