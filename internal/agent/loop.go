// Package agent drives the request/tool/response loop against a model.
//
// The loop owns turn sequencing and the housekeeping that runs between
// turns: micro-compaction, threshold compaction, and the todo staleness
// reminder. Tool semantics live in their own packages; the loop only
// dispatches.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/scribe-agent/scribe/internal/compact"
	"github.com/scribe-agent/scribe/internal/conversation"
	"github.com/scribe-agent/scribe/internal/llm"
	"github.com/scribe-agent/scribe/internal/prompts"
	"github.com/scribe-agent/scribe/internal/todo"
	"github.com/scribe-agent/scribe/internal/tools"
)

// todoStaleTurns is how many assistant turns may pass without a todo
// update before the reminder fires.
const todoStaleTurns = 3

// ErrIterationLimit is returned when a bounded loop exhausts its
// iteration budget without producing a plain-text answer.
var ErrIterationLimit = errors.New("agent: iteration limit reached")

// Loop runs one agent session against a conversation log. A Loop is
// reusable across turns of the same session but not safe for concurrent
// Run calls.
type Loop struct {
	client   llm.Client
	model    string
	registry *tools.Registry
	system   string
	logger   *slog.Logger

	// compactor is optional; nil disables all compaction tiers.
	compactor *compact.Pipeline

	// maxIterations bounds one Run call. Zero means unbounded, which
	// is the top-level agent's mode; subagents run bounded.
	maxIterations int

	// turnsSinceTodo counts assistant turns since the last todo tool
	// call, across Run calls.
	turnsSinceTodo int
}

// Option configures a Loop.
type Option func(*Loop)

// WithCompactor enables the compaction pipeline.
func WithCompactor(p *compact.Pipeline) Option {
	return func(l *Loop) { l.compactor = p }
}

// WithMaxIterations bounds a single Run call.
func WithMaxIterations(n int) Option {
	return func(l *Loop) { l.maxIterations = n }
}

// WithLogger sets the loop's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger.With("component", "agent") }
}

// New creates a loop. system is the session's system prompt, prepended
// to every request but never stored in the log.
func New(client llm.Client, model string, registry *tools.Registry, system string, opts ...Option) *Loop {
	l := &Loop{
		client:   client,
		model:    model,
		registry: registry,
		system:   system,
		logger:   slog.Default().With("component", "agent"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run advances the conversation until the model answers with plain text,
// and returns that text. The caller appends the user message to the log
// before calling Run.
//
// Tool failures are not fatal: they are fed back to the model as
// "Error: ..." results. Transport failures from the model provider are
// the one error class that aborts the turn.
func (l *Loop) Run(ctx context.Context, log *conversation.Log) (string, error) {
	for iteration := 0; ; iteration++ {
		if l.maxIterations > 0 && iteration >= l.maxIterations {
			l.logger.Warn("iteration limit reached", "limit", l.maxIterations)
			return "", ErrIterationLimit
		}

		l.housekeep(ctx, log)

		resp, err := l.client.Chat(ctx, l.model, l.withSystem(log), l.registry.List())
		if err != nil {
			return "", err
		}

		msg := resp.Message
		if len(msg.ToolCalls) == 0 {
			log.Append(msg)
			l.turnsSinceTodo++
			return msg.Content, nil
		}

		// The assistant message is stored verbatim, raw argument text
		// included, so the transcript round-trips exactly.
		log.Append(msg)

		compactFocus, compactRequested := l.dispatch(ctx, log, msg.ToolCalls)
		if compactRequested && l.compactor != nil {
			if _, err := l.compactor.Compact(ctx, log, compactFocus); err != nil {
				l.logger.Error("manual compaction failed", "error", err)
				log.Append(llm.Message{
					Role:    "user",
					Content: "Compaction failed: " + err.Error() + ". Continue without it.",
				})
			}
		}
	}
}

// dispatch executes tool calls in order, appending one tool-role result
// per call. The compact tool is intercepted rather than dispatched;
// dispatch reports whether it was requested and with what focus.
func (l *Loop) dispatch(ctx context.Context, log *conversation.Log, calls []llm.ToolCall) (focus string, requested bool) {
	sawTodo := false
	for _, call := range calls {
		var result string

		switch call.Name {
		case compact.ToolName:
			if l.compactor == nil {
				result = "Error: compaction is not available in this session"
				break
			}
			requested = true
			focus = parseFocus(call.Arguments)
			result = "Compacting conversation."
		default:
			var err error
			result, err = l.registry.Execute(ctx, call.Name, call.Arguments)
			if err != nil {
				result = tools.Truncate("Error: "+err.Error(), tools.MaxResultChars)
			}
			if call.Name == todo.ToolName {
				sawTodo = true
			}
		}

		l.logger.Debug("tool executed", "tool", call.Name, "result_len", len(result))
		log.Append(llm.Message{
			Role:       "tool",
			Content:    result,
			ToolCallID: call.ID,
		})
	}

	if sawTodo {
		l.turnsSinceTodo = 0
	} else {
		l.turnsSinceTodo++
	}
	return focus, requested
}

// housekeep runs the between-turn maintenance: Tier 1 compaction, the
// Tier 2 threshold check, and the todo staleness reminder.
func (l *Loop) housekeep(ctx context.Context, log *conversation.Log) {
	if l.compactor != nil {
		l.compactor.Micro(log)
		if l.compactor.NeedsCompaction(log) {
			if _, err := l.compactor.Compact(ctx, log, ""); err != nil {
				l.logger.Error("auto-compaction failed", "error", err)
			}
		}
	}
	l.maybeRemind(log)
}

// maybeRemind prepends the todo reminder to the latest user message when
// the list has gone stale. One-shot: firing resets the counter, and a
// message already carrying the marker is never re-prefixed.
func (l *Loop) maybeRemind(log *conversation.Log) {
	if l.registry.Get(todo.ToolName) == nil {
		return
	}
	if l.turnsSinceTodo < todoStaleTurns {
		return
	}
	last, ok := log.Last()
	if !ok || last.Role != "user" {
		return
	}
	if strings.HasPrefix(last.Content, prompts.ReminderPrefix) {
		return
	}
	last.Content = prompts.ReminderPrefix + last.Content
	log.Rewrite(log.Len()-1, last)
	l.turnsSinceTodo = 0
	l.logger.Debug("todo reminder injected")
}

// parseFocus extracts the optional focus hint from raw compact-tool
// arguments. Malformed JSON degrades to no focus.
func parseFocus(rawArgs string) string {
	var args struct {
		Focus string `json:"focus"`
	}
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return ""
	}
	return args.Focus
}

// withSystem returns the request message slice: the system prompt
// followed by a snapshot of the log.
func (l *Loop) withSystem(log *conversation.Log) []llm.Message {
	msgs := log.Messages()
	out := make([]llm.Message, 0, len(msgs)+1)
	out = append(out, llm.Message{Role: "system", Content: l.system})
	return append(out, msgs...)
}
