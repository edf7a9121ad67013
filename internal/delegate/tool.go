package delegate

import (
	"context"
	"fmt"

	"github.com/scribe-agent/scribe/internal/tools"
)

// RegisterTool adds the task tool backed by the given runner. Tool
// errors surface as results, not failures, so the parent loop feeds
// them back to the model.
func RegisterTool(r *tools.Registry, runner Runner) {
	r.Register(&tools.Tool{
		Name:        ToolName,
		Description: "Delegate a self-contained task to a subagent with a fresh context. Returns only the subagent's summary.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "Full instructions for the subagent, including any context it needs",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Short label for the task, used in logs",
				},
			},
			"required": []string{"prompt"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			prompt, _ := args["prompt"].(string)
			if prompt == "" {
				return "", fmt.Errorf("prompt is required")
			}
			description, _ := args["description"].(string)
			return runner.Run(ctx, prompt, description)
		},
	})
}
