package compact

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scribe-agent/scribe/internal/conversation"
	"github.com/scribe-agent/scribe/internal/llm"
)

// scriptedClient returns canned responses in order and records requests.
type scriptedClient struct {
	responses []*llm.ChatResponse
	err       error
	requests  [][]llm.Message
}

func (c *scriptedClient) Chat(_ context.Context, _ string, messages []llm.Message, _ []map[string]any) (*llm.ChatResponse, error) {
	c.requests = append(c.requests, messages)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return &llm.ChatResponse{Message: llm.Message{Role: "assistant", Content: "summary"}}, nil
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func (c *scriptedClient) Ping(context.Context) error { return nil }

func longResult(n int) string {
	return strings.Repeat("x", n)
}

func seededLog(toolResults int) *conversation.Log {
	log := conversation.New(llm.Message{Role: "user", Content: "do the thing"})
	for i := 0; i < toolResults; i++ {
		id := fmt.Sprintf("call_%d", i)
		log.Append(
			llm.Message{Role: "assistant", ToolCalls: []llm.ToolCall{
				{ID: id, Name: "bash", Arguments: `{"command":"ls"}`},
			}},
			llm.Message{Role: "tool", ToolCallID: id, Content: longResult(200)},
		)
	}
	return log
}

func newTestPipeline(t *testing.T, client llm.Client) *Pipeline {
	t.Helper()
	return New(Config{TranscriptDir: filepath.Join(t.TempDir(), ".transcripts")}, client, "test-model", nil)
}

func TestMicroKeepsRecentResults(t *testing.T) {
	p := newTestPipeline(t, &scriptedClient{})
	log := seededLog(5)

	rewritten := p.Micro(log)
	if rewritten != 2 {
		t.Fatalf("rewritten = %d, want 2", rewritten)
	}

	var toolMsgs []llm.Message
	for _, m := range log.Messages() {
		if m.Role == "tool" {
			toolMsgs = append(toolMsgs, m)
		}
	}
	for i, m := range toolMsgs[:2] {
		if m.Content != "[earlier: used bash]" {
			t.Errorf("old result %d = %q", i, m.Content)
		}
	}
	for i, m := range toolMsgs[2:] {
		if m.Content != longResult(200) {
			t.Errorf("recent result %d was compacted", i)
		}
	}
}

func TestMicroIsIdempotent(t *testing.T) {
	p := newTestPipeline(t, &scriptedClient{})
	log := seededLog(5)

	p.Micro(log)
	if again := p.Micro(log); again != 0 {
		t.Errorf("second pass rewrote %d messages", again)
	}
}

func TestMicroSkipsShortResults(t *testing.T) {
	p := newTestPipeline(t, &scriptedClient{})
	log := conversation.New()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("c%d", i)
		log.Append(
			llm.Message{Role: "assistant", ToolCalls: []llm.ToolCall{{ID: id, Name: "bash"}}},
			llm.Message{Role: "tool", ToolCallID: id, Content: "ok"},
		)
	}

	if rewritten := p.Micro(log); rewritten != 0 {
		t.Errorf("rewrote %d short results", rewritten)
	}
}

func TestMicroUnknownToolName(t *testing.T) {
	p := newTestPipeline(t, &scriptedClient{})
	log := conversation.New()
	// Tool results whose call ids match no assistant message.
	for i := 0; i < 4; i++ {
		log.Append(llm.Message{Role: "tool", ToolCallID: fmt.Sprintf("orphan%d", i), Content: longResult(150)})
	}

	p.Micro(log)
	if got := log.Messages()[0].Content; got != "[earlier: used unknown]" {
		t.Errorf("placeholder = %q", got)
	}
}

func TestEstimateAndThreshold(t *testing.T) {
	p := New(Config{ThresholdTokens: 10, CharsPerToken: 4}, &scriptedClient{}, "m", nil)

	log := conversation.New(llm.Message{Role: "user", Content: strings.Repeat("a", 40)})
	if got := p.EstimateTokens(log); got != 10 {
		t.Errorf("EstimateTokens = %d, want 10", got)
	}
	if p.NeedsCompaction(log) {
		t.Error("at threshold should not trigger")
	}

	log.Append(llm.Message{Role: "user", Content: "overflow"})
	if !p.NeedsCompaction(log) {
		t.Error("above threshold should trigger")
	}
}

func TestCompactReplacesConversation(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{
		{Message: llm.Message{Role: "assistant", Content: "work so far: listed files"}},
	}}
	p := newTestPipeline(t, client)
	log := seededLog(3)
	before := log.Len()

	path, err := p.Compact(context.Background(), log, "")
	if err != nil {
		t.Fatal(err)
	}

	if log.Len() != 2 {
		t.Fatalf("Len after compact = %d, want 2", log.Len())
	}
	msgs := log.Messages()
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("roles = %s/%s", msgs[0].Role, msgs[1].Role)
	}
	if !strings.Contains(msgs[0].Content, "work so far: listed files") {
		t.Errorf("summary missing from notice: %q", msgs[0].Content)
	}
	if !strings.Contains(msgs[0].Content, path) {
		t.Errorf("transcript path missing from notice: %q", msgs[0].Content)
	}

	// The transcript holds one JSON line per original message.
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	lines := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines++
	}
	if lines != before {
		t.Errorf("transcript lines = %d, want %d", lines, before)
	}
}

func TestCompactPassesFocusToSummarizer(t *testing.T) {
	client := &scriptedClient{}
	p := newTestPipeline(t, client)
	log := seededLog(1)

	if _, err := p.Compact(context.Background(), log, "the database schema"); err != nil {
		t.Fatal(err)
	}

	if len(client.requests) != 1 {
		t.Fatalf("requests = %d", len(client.requests))
	}
	prompt := client.requests[0][0].Content
	if !strings.Contains(prompt, "the database schema") {
		t.Errorf("focus missing from prompt")
	}
}

func TestCompactSummarizerFailureLeavesLog(t *testing.T) {
	client := &scriptedClient{err: fmt.Errorf("connection refused")}
	p := newTestPipeline(t, client)
	log := seededLog(2)
	before := log.Len()

	if _, err := p.Compact(context.Background(), log, ""); err == nil {
		t.Fatal("want error")
	}
	if log.Len() != before {
		t.Errorf("failed compaction mutated the log")
	}
}

func TestTranscriptFilesNeverCollide(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".transcripts")
	p := New(Config{TranscriptDir: dir}, &scriptedClient{}, "m", nil)
	log := seededLog(1)

	// Two compactions in the same second must get distinct files.
	path1, err := p.Compact(context.Background(), log, "")
	if err != nil {
		t.Fatal(err)
	}
	log.Append(llm.Message{Role: "user", Content: "more"})
	path2, err := p.Compact(context.Background(), log, "")
	if err != nil {
		t.Fatal(err)
	}
	if path1 == path2 {
		t.Errorf("transcript paths collide: %q", path1)
	}
}

func TestCompactCapsSummarizerInput(t *testing.T) {
	client := &scriptedClient{}
	p := newTestPipeline(t, client)

	log := conversation.New(llm.Message{Role: "user", Content: longResult(200000)})
	if _, err := p.Compact(context.Background(), log, ""); err != nil {
		t.Fatal(err)
	}

	prompt := client.requests[0][0].Content
	if len(prompt) > maxSerializedChars+1000 {
		t.Errorf("summarizer input not capped: %d chars", len(prompt))
	}
}
