// Package tools defines the tools available to the agent.
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileTools provides file read/write/edit capabilities within a workspace.
// Every path is resolved against the workspace root; resolutions landing
// outside it are rejected. This is the one sandboxing invariant the
// system enforces.
type FileTools struct {
	workspacePath string
}

// NewFileTools creates a FileTools instance rooted at workspacePath.
func NewFileTools(workspacePath string) *FileTools {
	return &FileTools{workspacePath: workspacePath}
}

// WorkspacePath returns the configured workspace root.
func (ft *FileTools) WorkspacePath() string {
	return ft.workspacePath
}

// resolvePath converts a tool-supplied path to an absolute path within
// the workspace. Returns an error if the path would escape it.
func (ft *FileTools) resolvePath(path string) (string, error) {
	if ft.workspacePath == "" {
		return "", fmt.Errorf("workspace not configured")
	}

	workspaceAbs, err := filepath.Abs(ft.workspacePath)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}

	var absPath string
	if filepath.IsAbs(path) {
		absPath = filepath.Clean(path)
	} else {
		absPath = filepath.Clean(filepath.Join(workspaceAbs, path))
	}

	// Separator-aware containment check: a plain prefix test would let
	// /work-evil pass for workspace /work.
	rel, err := filepath.Rel(workspaceAbs, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", path)
	}

	return absPath, nil
}

// Read returns the contents of a file. When limit > 0 and the file has
// more lines, only the first limit lines are returned with a truncation
// notice appended as one extra line.
func (ft *FileTools) Read(ctx context.Context, path string, limit int) (string, error) {
	absPath, err := ft.resolvePath(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("read file: %w", err)
	}

	content := strings.TrimSuffix(string(data), "\n")
	lines := strings.Split(content, "\n")

	if limit > 0 && limit < len(lines) {
		remaining := len(lines) - limit
		lines = append(lines[:limit], fmt.Sprintf("... (%d more lines)", remaining))
		content = strings.Join(lines, "\n")
	}

	return content, nil
}

// Write writes content to a file, creating parent directories as needed.
// Returns the number of bytes written.
func (ft *FileTools) Write(ctx context.Context, path, content string) (int, error) {
	absPath, err := ft.resolvePath(path)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}

	if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
		return 0, fmt.Errorf("write file: %w", err)
	}

	return len(content), nil
}

// Edit replaces the first occurrence of oldText in the file with newText.
// Ambiguity between multiple occurrences is the caller's responsibility;
// only the first match is touched. An absent oldText is an explicit
// failure and leaves the file unchanged.
func (ft *FileTools) Edit(ctx context.Context, path, oldText, newText string) error {
	absPath, err := ft.resolvePath(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
		return fmt.Errorf("read file: %w", err)
	}

	content := string(data)
	if !strings.Contains(content, oldText) {
		return fmt.Errorf("text not found in %s", path)
	}

	newContent := strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(absPath, []byte(newContent), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
