// Package compact implements the three-tier context-compaction pipeline.
//
// Tier 1 (micro) silently replaces older tool results with short
// placeholders every turn. Tier 2 (auto) fires when the estimated token
// cost of the conversation crosses a threshold: the full transcript is
// persisted to disk, the model produces a continuity summary, and the
// in-memory conversation is replaced by two synthetic messages. Tier 3
// (manual) is the same procedure, triggered by the model through the
// compact tool.
package compact

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/scribe-agent/scribe/internal/conversation"
	"github.com/scribe-agent/scribe/internal/llm"
	"github.com/scribe-agent/scribe/internal/prompts"
	"github.com/scribe-agent/scribe/internal/tools"
)

// ToolName is the registry name of the manual compaction tool. The agent
// loop detects this name and short-circuits normal dispatch.
const ToolName = "compact"

// microPlaceholderMin is the content length above which an older tool
// result is replaced by a placeholder.
const microPlaceholderMin = 100

// maxSerializedChars caps the serialized conversation sent to the model
// for summarization.
const maxSerializedChars = 80000

// Config tunes the pipeline. All fields have working defaults.
type Config struct {
	// ThresholdTokens triggers auto-compaction (default 50000).
	ThresholdTokens int
	// CharsPerToken is the token-estimate divisor (default 4). The
	// estimate is coarse on purpose; adjust per model family.
	CharsPerToken int
	// KeepRecent tool results are never micro-compacted (default 3).
	KeepRecent int
	// TranscriptDir receives one JSONL transcript file per compaction
	// event.
	TranscriptDir string
}

func (c *Config) applyDefaults() {
	if c.ThresholdTokens <= 0 {
		c.ThresholdTokens = 50000
	}
	if c.CharsPerToken <= 0 {
		c.CharsPerToken = 4
	}
	if c.KeepRecent <= 0 {
		c.KeepRecent = 3
	}
}

// Pipeline runs the compaction tiers against a conversation log.
type Pipeline struct {
	cfg    Config
	llm    llm.Client
	model  string
	logger *slog.Logger
}

// New creates a pipeline. The client and model are used only for the
// Tier 2/3 summarization call.
func New(cfg Config, client llm.Client, model string, logger *slog.Logger) *Pipeline {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		llm:    client,
		model:  model,
		logger: logger.With("component", "compact"),
	}
}

// EstimateTokens approximates the token cost of the log as its character
// count divided by the configured chars-per-token factor.
func (p *Pipeline) EstimateTokens(log *conversation.Log) int {
	return log.CharCount() / p.cfg.CharsPerToken
}

// NeedsCompaction reports whether the estimate exceeds the threshold.
func (p *Pipeline) NeedsCompaction(log *conversation.Log) bool {
	return p.EstimateTokens(log) > p.cfg.ThresholdTokens
}

// Micro runs Tier 1: every tool-role message except the most recent
// KeepRecent has its content replaced with a placeholder naming the
// originating tool, when that content exceeds the placeholder minimum.
// Placeholders are short enough to never re-qualify, so repeated runs
// are idempotent.
// Returns the number of messages rewritten.
func (p *Pipeline) Micro(log *conversation.Log) int {
	msgs := log.Messages()

	var toolIdx []int
	for i, m := range msgs {
		if m.Role == "tool" {
			toolIdx = append(toolIdx, i)
		}
	}
	if len(toolIdx) <= p.cfg.KeepRecent {
		return 0
	}

	// Map call ids back to tool names via prior assistant messages.
	names := make(map[string]string)
	for _, m := range msgs {
		if m.Role != "assistant" {
			continue
		}
		for _, tc := range m.ToolCalls {
			names[tc.ID] = tc.Name
		}
	}

	rewritten := 0
	for _, i := range toolIdx[:len(toolIdx)-p.cfg.KeepRecent] {
		m := msgs[i]
		if len(m.Content) <= microPlaceholderMin {
			continue
		}
		name := names[m.ToolCallID]
		if name == "" {
			name = "unknown"
		}
		m.Content = fmt.Sprintf("[earlier: used %s]", name)
		log.Rewrite(i, m)
		rewritten++
	}

	if rewritten > 0 {
		p.logger.Debug("micro-compaction applied", "rewritten", rewritten)
	}
	return rewritten
}

// Compact runs the Tier 2/3 procedure: persist the full transcript,
// obtain a continuity summary from the model, and replace the log with
// exactly two synthetic messages. focus, when non-empty, is the model's
// own hint about what the summary should preserve.
//
// This is a destructive one-way rewrite; prior messages survive only in
// the transcript file. A summarization failure propagates to the caller
// and leaves the log untouched.
func (p *Pipeline) Compact(ctx context.Context, log *conversation.Log, focus string) (string, error) {
	msgs := log.Messages()

	path, err := p.writeTranscript(msgs)
	if err != nil {
		return "", fmt.Errorf("persist transcript: %w", err)
	}

	serialized, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("serialize conversation: %w", err)
	}
	text := string(serialized)
	if len(text) > maxSerializedChars {
		text = text[:maxSerializedChars]
	}

	resp, err := p.llm.Chat(ctx, p.model, []llm.Message{
		{Role: "user", Content: prompts.CompactionPrompt(text, focus)},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("summarize conversation: %w", err)
	}
	summary := resp.Message.Content

	log.ReplaceAll([]llm.Message{
		{Role: "user", Content: prompts.CompactionNotice(path, summary)},
		{Role: "assistant", Content: prompts.CompactionAck},
	})

	p.logger.Info("conversation compacted",
		"transcript", path,
		"messages", len(msgs),
		"summary_len", len(summary),
	)
	return path, nil
}

// writeTranscript persists one JSON object per message to a new
// timestamp-named file. Files are write-once: an existing name is
// uniquified with a numeric suffix, never overwritten.
func (p *Pipeline) writeTranscript(msgs []llm.Message) (string, error) {
	dir := p.cfg.TranscriptDir
	if dir == "" {
		dir = ".transcripts"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}

	base := fmt.Sprintf("transcript_%d", time.Now().Unix())
	var f *os.File
	var path string
	for n := 0; ; n++ {
		name := base + ".jsonl"
		if n > 0 {
			name = fmt.Sprintf("%s_%d.jsonl", base, n)
		}
		path = filepath.Join(dir, name)

		var err error
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("create transcript: %w", err)
		}
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			return "", fmt.Errorf("write transcript: %w", err)
		}
	}

	return path, nil
}

// RegisterTool adds the compact tool to a registry. Dispatch is handled
// by the agent loop before normal handler execution; the handler below
// only runs if a caller bypasses the loop.
func RegisterTool(reg *tools.Registry) {
	reg.Register(&tools.Tool{
		Name:        ToolName,
		Description: "Compact the conversation when context is growing long. Earlier messages are summarized and archived.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"focus": map[string]any{
					"type":        "string",
					"description": "What the summary should make sure to preserve",
				},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", fmt.Errorf("%s must be dispatched by the agent loop", ToolName)
		},
	})
}
