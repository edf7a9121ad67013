package prompts

import (
	"fmt"
	"strings"
)

// compactionTemplate is the prompt sent to the model to produce a
// continuity summary during compaction. The single format verb is the
// serialized conversation.
const compactionTemplate = `Write a continuity summary of this conversation. Include:
1. Completed items
2. Current state
3. Key decisions

Be concise but keep the information needed to continue the work.

Conversation:
%s`

// focusSection is appended when the model requested compaction with an
// explicit focus hint. The format verb is the hint text.
const focusSection = `

Pay particular attention to preserving detail about: %s`

// CompactionPrompt returns the fully interpolated compaction prompt.
// conversationText is the serialized (and already capped) conversation;
// focus, if non-empty, is the model's own hint about what to preserve.
func CompactionPrompt(conversationText, focus string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(compactionTemplate, conversationText))
	if focus != "" {
		sb.WriteString(fmt.Sprintf(focusSection, focus))
	}
	return sb.String()
}

// CompactionNotice is the synthetic user message that replaces the
// conversation after compaction. It points at the persisted transcript
// and carries the summary.
func CompactionNotice(transcriptPath, summary string) string {
	return fmt.Sprintf("[Conversation compacted. Transcript: %s]\n\n%s", transcriptPath, summary)
}

// CompactionAck is the synthetic assistant acknowledgment paired with
// the notice, so the rewritten conversation ends on an assistant turn.
const CompactionAck = "Understood. I have the context from the summary and will continue."
