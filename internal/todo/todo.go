// Package todo implements the agent's self-reported task list.
//
// The model resubmits the full list on every todo call; a successful
// update replaces the stored list wholesale. Validation is atomic: a
// submission with any invalid item is rejected in full and the stored
// list is left untouched.
package todo

import (
	"context"
	"fmt"
	"strings"

	"github.com/scribe-agent/scribe/internal/tools"
)

// Status values an item may carry.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// maxItems bounds the list size.
const maxItems = 20

// Item is one task in the list.
type Item struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Status string `json:"status"`
}

// Manager holds the current task list for one agent loop.
type Manager struct {
	items []Item
}

// NewManager creates an empty task list.
func NewManager() *Manager {
	return &Manager{}
}

// Items returns a copy of the current list.
func (m *Manager) Items() []Item {
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

// Update validates and replaces the task list, returning the rendered
// view. Constraints: at most 20 items, non-empty text, status within the
// three-value enum, at most one item in_progress. Any violation rejects
// the whole submission.
func (m *Manager) Update(items []Item) (string, error) {
	if len(items) > maxItems {
		return "", fmt.Errorf("at most %d todo items allowed", maxItems)
	}

	validated := make([]Item, 0, len(items))
	inProgress := 0
	for i, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}
		text := strings.TrimSpace(item.Text)
		if text == "" {
			return "", fmt.Errorf("item %s: text is required", id)
		}
		status := strings.ToLower(strings.TrimSpace(item.Status))
		if status == "" {
			status = StatusPending
		}
		switch status {
		case StatusPending, StatusInProgress, StatusCompleted:
		default:
			return "", fmt.Errorf("item %s: invalid status %q", id, status)
		}
		if status == StatusInProgress {
			inProgress++
		}
		validated = append(validated, Item{ID: id, Text: text, Status: status})
	}
	if inProgress > 1 {
		return "", fmt.Errorf("only one item may be in_progress at a time")
	}

	m.items = validated
	return m.Render(), nil
}

// Render returns the one-line-per-item view with a completion count.
func (m *Manager) Render() string {
	if len(m.items) == 0 {
		return "No todos."
	}

	markers := map[string]string{
		StatusPending:    "[ ]",
		StatusInProgress: "[>]",
		StatusCompleted:  "[x]",
	}

	var sb strings.Builder
	done := 0
	for _, item := range m.items {
		fmt.Fprintf(&sb, "%s #%s: %s\n", markers[item.Status], item.ID, item.Text)
		if item.Status == StatusCompleted {
			done++
		}
	}
	fmt.Fprintf(&sb, "\n(%d/%d completed)", done, len(m.items))
	return sb.String()
}

// ToolName is the registry name for the todo tool.
const ToolName = "todo"

// RegisterTool adds the todo tool, bound to this manager, to a registry.
// Validation failures surface as the tool's own result text, not as
// loop-terminating faults.
func (m *Manager) RegisterTool(r *tools.Registry) {
	r.Register(&tools.Tool{
		Name:        ToolName,
		Description: "Update the task list used to track multi-step work. Submit the full list each time.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"items": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":     map[string]any{"type": "string"},
							"text":   map[string]any{"type": "string"},
							"status": map[string]any{"type": "string", "enum": []string{StatusPending, StatusInProgress, StatusCompleted}},
						},
						"required": []string{"id", "text", "status"},
					},
				},
			},
			"required": []string{"items"},
		},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			raw, ok := args["items"].([]any)
			if !ok {
				return "", fmt.Errorf("items is required")
			}
			items := make([]Item, 0, len(raw))
			for _, entry := range raw {
				obj, _ := entry.(map[string]any)
				id, _ := obj["id"].(string)
				text, _ := obj["text"].(string)
				status, _ := obj["status"].(string)
				items = append(items, Item{ID: id, Text: text, Status: status})
			}
			return m.Update(items)
		},
	})
}
