// Package prompts contains all LLM prompt templates used internally by scribe.
//
// Prompt text is Go code rather than config files because it is program logic:
// templates use fmt.Sprintf interpolation, benefit from compile-time embedding,
// and can be validated by tests. User-facing configuration lives in scribe.yaml;
// this package holds the instructions we send to models for internal operations
// (system prompts, compaction summaries, subagent framing).
//
// Convention: each prompt category gets its own file (system.go,
// compaction.go) with an exported function that accepts the dynamic parts
// and returns the fully interpolated prompt string.
package prompts
