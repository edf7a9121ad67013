package prompts

import (
	"fmt"
	"strings"
)

// systemTemplate frames the top-level agent. The format verb is the
// workspace root.
const systemTemplate = `You are a coding agent working in %s.
Use the available tools to complete tasks. Prefer doing over explaining.
Use the todo tool to plan multi-step work: mark an item in_progress before
starting it and completed when done.
Use the task tool to delegate exploration or self-contained subtasks to a
subagent with a fresh context.
If the conversation grows long, you may call the compact tool to summarize
it and free context.`

// subagentTemplate frames a delegated child agent. The format verb is the
// workspace root.
const subagentTemplate = `You are a coding subagent working in %s.
Complete the assigned task using the available tools, then report the
outcome as a short summary. Do not engage in conversation.`

// skillsSection is appended to the system prompt when skills are indexed.
// The format verb is the one-line-per-skill description block.
const skillsSection = `

Before working on an unfamiliar topic, you can load specialized knowledge
by name with the load_skill tool.

Available skills:
%s`

// ReminderPrefix is prepended to a stale user message when the agent has
// gone several turns without updating its todo list. One-shot: the loop
// checks for this marker before injecting again.
const ReminderPrefix = "<reminder>Update your todo list.</reminder>\n"

// System returns the top-level system prompt. skillIndex is the rendered
// one-line-per-skill block from the skill loader; empty means the skills
// section is omitted entirely.
func System(workdir, skillIndex string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(systemTemplate, workdir))
	if skillIndex != "" {
		sb.WriteString(fmt.Sprintf(skillsSection, skillIndex))
	}
	return sb.String()
}

// Subagent returns the system prompt for a delegated child agent.
func Subagent(workdir string) string {
	return fmt.Sprintf(subagentTemplate, workdir)
}
