package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// MaxResultChars bounds any single tool result so no one output can
// dominate the context budget. Longer results are truncated.
const MaxResultChars = 50000

// Tool represents a callable tool.
type Tool struct {
	Name        string                                                         `json:"name"`
	Description string                                                         `json:"description"`
	Parameters  map[string]any                                                 `json:"parameters"`
	Handler     func(ctx context.Context, args map[string]any) (string, error) `json:"-"`
}

// Registry holds available tools.
type Registry struct {
	tools map[string]*Tool
	order []string // registration order, for stable schema output
}

// NewRegistry creates a tool registry with the standard file and shell
// tools registered. Optional tools (todo, task, load_skill, compact) are
// registered by their owning packages.
func NewRegistry(files *FileTools, shell *ShellExec) *Registry {
	r := NewEmptyRegistry()
	r.registerBuiltins(files, shell)
	return r
}

// NewEmptyRegistry creates a registry with no tools. Used by tests and
// by packages that assemble a custom tool set.
func NewEmptyRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

func (r *Registry) registerBuiltins(files *FileTools, shell *ShellExec) {
	r.Register(&Tool{
		Name:        "bash",
		Description: "Execute a shell command in the workspace.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{"type": "string"},
			},
			"required": []string{"command"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := args["command"].(string)
			if command == "" {
				return "", fmt.Errorf("command is required")
			}
			return shell.Exec(ctx, command), nil
		},
	})

	r.Register(&Tool{
		Name:        "read_file",
		Description: "Read the contents of a file.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":  map[string]any{"type": "string"},
				"limit": map[string]any{"type": "integer", "description": "Maximum number of lines to return"},
			},
			"required": []string{"path"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			if path == "" {
				return "", fmt.Errorf("path is required")
			}
			limit := 0
			if l, ok := args["limit"].(float64); ok {
				limit = int(l)
			}
			return files.Read(ctx, path, limit)
		},
	})

	r.Register(&Tool{
		Name:        "write_file",
		Description: "Write content to a file, creating directories as needed.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
			"required": []string{"path", "content"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			if path == "" {
				return "", fmt.Errorf("path is required")
			}
			content, _ := args["content"].(string)
			n, err := files.Write(ctx, path, content)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Wrote %d bytes to %s", n, path), nil
		},
	})

	r.Register(&Tool{
		Name:        "edit_file",
		Description: "Replace the first occurrence of a text fragment in a file.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":     map[string]any{"type": "string"},
				"old_text": map[string]any{"type": "string"},
				"new_text": map[string]any{"type": "string"},
			},
			"required": []string{"path", "old_text", "new_text"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			oldText, _ := args["old_text"].(string)
			newText, _ := args["new_text"].(string)
			if path == "" || oldText == "" {
				return "", fmt.Errorf("path and old_text are required")
			}
			if err := files.Edit(ctx, path, oldText, newText); err != nil {
				return "", err
			}
			return fmt.Sprintf("Edited %s", path), nil
		},
	})
}

// Register adds a tool to the registry, replacing any existing tool of
// the same name.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get retrieves a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// List returns the tool schema in the wire format the model expects.
func (r *Registry) List() []map[string]any {
	var result []map[string]any
	for _, name := range r.order {
		t := r.tools[name]
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// FilteredCopyExcluding returns a new registry with the named tools
// removed. Used to build a subagent's restricted tool set.
func (r *Registry) FilteredCopyExcluding(names []string) *Registry {
	excluded := make(map[string]bool, len(names))
	for _, n := range names {
		excluded[n] = true
	}
	out := NewEmptyRegistry()
	for _, name := range r.order {
		if !excluded[name] {
			out.Register(r.tools[name])
		}
	}
	return out
}

// Execute runs a tool by name with a raw JSON argument payload.
//
// A malformed payload does not abort the call: it degrades to an empty
// argument set and the handler is still invoked (handlers defend their
// own required fields). An unknown tool name or handler failure comes
// back as an error for the caller to surface as result text. Successful
// results are truncated to MaxResultChars.
func (r *Registry) Execute(ctx context.Context, name string, rawArgs string) (string, error) {
	tool := r.tools[name]
	if tool == nil {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			args = map[string]any{}
		}
	}

	result, err := tool.Handler(ctx, args)
	if err != nil {
		return "", err
	}
	return Truncate(result, MaxResultChars), nil
}

// Truncate shortens s to at most n characters.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
