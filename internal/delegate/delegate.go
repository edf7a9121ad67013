// Package delegate runs isolated subagents for the task tool.
//
// A subagent gets a fresh conversation seeded only with the delegated
// prompt, a reduced tool registry, and a bounded iteration budget. Only
// its final summary flows back to the parent conversation. Two backends
// exist: in-process (same binary, shared registry semantics) and
// subprocess (a child scribe invocation).
package delegate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/scribe-agent/scribe/internal/agent"
	"github.com/scribe-agent/scribe/internal/compact"
	"github.com/scribe-agent/scribe/internal/conversation"
	"github.com/scribe-agent/scribe/internal/llm"
	"github.com/scribe-agent/scribe/internal/prompts"
	"github.com/scribe-agent/scribe/internal/tools"
)

// ToolName is the registry name of the delegation tool. Subagent
// registries exclude it so delegation never nests.
const ToolName = "task"

// noSummary is returned when a subagent exhausts its budget without a
// final text answer.
const noSummary = "(no summary)"

// defaultMaxIterations bounds a subagent run.
const defaultMaxIterations = 30

// Runner executes one delegated task and returns its summary text.
type Runner interface {
	Run(ctx context.Context, prompt, description string) (string, error)
}

// InProcess runs subagents inside the parent process using a fresh
// agent loop per task.
type InProcess struct {
	client        llm.Client
	model         string
	registry      *tools.Registry
	workdir       string
	maxIterations int
	logger        *slog.Logger
}

// NewInProcess creates the in-process backend. registry is the parent's
// registry; each run works against a copy with the task tool removed.
// maxIterations <= 0 selects the default budget.
func NewInProcess(client llm.Client, model string, registry *tools.Registry, workdir string, maxIterations int, logger *slog.Logger) *InProcess {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcess{
		client:        client,
		model:         model,
		registry:      registry,
		workdir:       workdir,
		maxIterations: maxIterations,
		logger:        logger.With("component", "delegate"),
	}
}

// Run executes the task in a fresh conversation and returns the
// subagent's final text. Hitting the iteration budget is not an error;
// the placeholder summary is returned so the parent can continue.
func (p *InProcess) Run(ctx context.Context, prompt, description string) (string, error) {
	runID := newRunID()
	logger := p.logger.With("run_id", runID)
	logger.Info("subagent started", "description", description, "prompt_len", len(prompt))

	log := conversation.New(llm.Message{Role: "user", Content: prompt})
	// The child gets neither task (delegation never nests) nor compact:
	// subagent loops run without a compaction pipeline, so advertising
	// the tool would invite calls that cannot be honored.
	loop := agent.New(
		p.client,
		p.model,
		p.registry.FilteredCopyExcluding([]string{ToolName, compact.ToolName}),
		prompts.Subagent(p.workdir),
		agent.WithMaxIterations(p.maxIterations),
		agent.WithLogger(logger),
	)

	summary, err := loop.Run(ctx, log)
	if err == agent.ErrIterationLimit {
		summary = lastAssistantText(log)
		logger.Warn("subagent hit iteration limit", "summary_len", len(summary))
		return summary, nil
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(summary) == "" {
		summary = noSummary
	}
	logger.Info("subagent finished", "summary_len", len(summary))
	return summary, nil
}

// lastAssistantText scans backwards for the most recent assistant text,
// falling back to the placeholder when none exists.
func lastAssistantText(log *conversation.Log) string {
	msgs := log.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "assistant" && strings.TrimSpace(msgs[i].Content) != "" {
			return msgs[i].Content
		}
	}
	return noSummary
}

// newRunID returns a sortable correlation id for one subagent run.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
