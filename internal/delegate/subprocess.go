package delegate

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Subprocess runs each subagent as a child invocation of the scribe
// binary in one-shot mode. Isolation is total: the child has its own
// conversation, registry, and process state; only stdout comes back.
type Subprocess struct {
	// binary is the executable to invoke. Empty means the current
	// executable.
	binary string
	// workdir is the child's working directory.
	workdir string
	logger  *slog.Logger
}

// NewSubprocess creates the subprocess backend.
func NewSubprocess(binary, workdir string, logger *slog.Logger) *Subprocess {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subprocess{
		binary:  binary,
		workdir: workdir,
		logger:  logger.With("component", "delegate", "backend", "subprocess"),
	}
}

// Run invokes the binary with the prompt as its single argument and
// returns trimmed stdout. The child inherits the environment, so model
// credentials and base URL flow through.
func (s *Subprocess) Run(ctx context.Context, prompt, description string) (string, error) {
	runID := newRunID()
	logger := s.logger.With("run_id", runID)
	logger.Info("subagent started", "description", description, "prompt_len", len(prompt))

	binary := s.binary
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("resolve executable: %w", err)
		}
		binary = exe
	}

	// The -- terminator keeps a prompt that happens to look like a flag
	// or subcommand from being parsed as one by the child.
	cmd := exec.CommandContext(ctx, binary, "--", prompt)
	cmd.Dir = s.workdir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logger.Warn("subagent process failed", "error", err, "stderr_len", stderr.Len())
		return "", fmt.Errorf("subagent process: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	summary := strings.TrimSpace(stdout.String())
	if summary == "" {
		summary = noSummary
	}
	logger.Info("subagent finished", "summary_len", len(summary))
	return summary, nil
}
