// Package conversation owns the ordered message log for one agent session.
//
// The Log is the only entity allowed to mutate the message sequence.
// The agent loop appends turns; the compaction pipeline rewrites entries
// in place (micro-compaction) or replaces the whole sequence
// (auto/manual compaction). Everything else sees snapshots.
package conversation

import (
	"sync"

	"github.com/scribe-agent/scribe/internal/llm"
)

// Log is an owned, append-mostly message sequence.
type Log struct {
	mu   sync.RWMutex
	msgs []llm.Message
}

// New creates a log seeded with the given messages.
func New(seed ...llm.Message) *Log {
	l := &Log{}
	l.msgs = append(l.msgs, seed...)
	return l
}

// Append adds messages to the end of the log.
func (l *Log) Append(msgs ...llm.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msgs...)
}

// Messages returns a snapshot copy of the sequence. Callers may read and
// pass it around freely; mutations do not affect the log.
func (l *Log) Messages() []llm.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]llm.Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}

// Last returns the final message, or false when the log is empty.
func (l *Log) Last() (llm.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.msgs) == 0 {
		return llm.Message{}, false
	}
	return l.msgs[len(l.msgs)-1], true
}

// Rewrite replaces the message at index i. Used by micro-compaction to
// substitute placeholders and by the loop to prefix reminders. Out of
// range indexes are ignored.
func (l *Log) Rewrite(i int, msg llm.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.msgs) {
		return
	}
	l.msgs[i] = msg
}

// ReplaceAll swaps the entire sequence. This is the destructive rewrite
// auto/manual compaction performs; prior messages survive only in the
// persisted transcript.
func (l *Log) ReplaceAll(msgs []llm.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = make([]llm.Message, len(msgs))
	copy(l.msgs, msgs)
}

// CharCount returns the total content length in characters, including
// raw tool-call argument text. The compaction pipeline divides this by
// a chars-per-token factor to estimate context cost.
func (l *Log) CharCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := 0
	for _, m := range l.msgs {
		total += len(m.Content)
		for _, tc := range m.ToolCalls {
			total += len(tc.Name) + len(tc.Arguments)
		}
	}
	return total
}
