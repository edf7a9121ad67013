// Package skills loads on-demand knowledge documents for the agent.
//
// Skills live as markdown files in a fixed directory and are indexed
// once at process start. The index exposes two tiers: a cheap
// one-line-per-skill description block that rides along in the system
// prompt, and the full body, returned only when the model explicitly
// loads a skill by name.
package skills

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/scribe-agent/scribe/internal/tools"
)

// Skill is one parsed knowledge document. Immutable after load.
type Skill struct {
	Name        string   // filename without .md extension
	Description string   // from frontmatter, or the first heading
	Tags        []string // from frontmatter (nil = untagged)
	Body        string   // markdown content, frontmatter stripped
}

// frontmatter is the YAML metadata block at the top of a skill file.
type frontmatter struct {
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

// Index is the immutable skill catalog for the process lifetime.
type Index struct {
	skills map[string]*Skill
	names  []string // sorted
}

// LoadDir scans dir for *.md files and builds the index. A missing
// directory yields an empty index; individual unreadable files are
// errors.
func LoadDir(dir string) (*Index, error) {
	idx := &Index{skills: make(map[string]*Skill)}
	if dir == "" {
		return idx, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil // no skills dir is fine
		}
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read skill %s: %w", e.Name(), err)
		}

		name := strings.TrimSuffix(e.Name(), ".md")
		meta, body := parseFrontmatter(string(data))
		desc := meta.Description
		if desc == "" {
			desc = firstHeading(body)
		}
		if desc == "" {
			desc = "no description"
		}

		idx.skills[name] = &Skill{
			Name:        name,
			Description: desc,
			Tags:        meta.Tags,
			Body:        body,
		}
		idx.names = append(idx.names, name)
	}

	sort.Strings(idx.names)
	return idx, nil
}

// Len returns the number of indexed skills.
func (i *Index) Len() int {
	return len(i.skills)
}

// Names returns the sorted skill names.
func (i *Index) Names() []string {
	out := make([]string, len(i.names))
	copy(out, i.names)
	return out
}

// DescribeAll renders the low-cost tier: one line per skill for the
// system prompt. Empty when no skills are indexed.
func (i *Index) DescribeAll() string {
	if len(i.names) == 0 {
		return ""
	}
	var lines []string
	for _, name := range i.names {
		s := i.skills[name]
		line := fmt.Sprintf("  - %s: %s", s.Name, s.Description)
		if len(s.Tags) > 0 {
			line += fmt.Sprintf(" [%s]", strings.Join(s.Tags, ", "))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Load returns the high-cost tier: the full body wrapped in a named
// container tag. Unknown names fail with the available skill list.
func (i *Index) Load(name string) (string, error) {
	s := i.skills[name]
	if s == nil {
		return "", fmt.Errorf("unknown skill %q, available: %s", name, strings.Join(i.names, ", "))
	}
	return fmt.Sprintf("<skill name=%q>\n%s\n</skill>", s.Name, s.Body), nil
}

// ToolName is the registry name for the skill loading tool.
const ToolName = "load_skill"

// RegisterTool adds the load_skill tool, bound to this index, to a
// registry. Skipped when the index is empty; the tool schema would only
// waste prompt budget.
func (i *Index) RegisterTool(r *tools.Registry) {
	if i.Len() == 0 {
		return
	}
	r.Register(&tools.Tool{
		Name:        ToolName,
		Description: "Load specialized knowledge (a skill) by name.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string", "description": "Name of the skill to load"},
			},
			"required": []string{"name"},
		},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			name, _ := args["name"].(string)
			if name == "" {
				return "", fmt.Errorf("name is required")
			}
			return i.Load(name)
		},
	})
}

// parseFrontmatter splits a "---"-delimited YAML metadata block from the
// body. Returns zero metadata and the raw text when no block is present
// or the YAML does not parse.
func parseFrontmatter(raw string) (frontmatter, string) {
	var meta frontmatter

	if !strings.HasPrefix(raw, "---\n") && !strings.HasPrefix(raw, "---\r\n") {
		return meta, raw
	}

	rest := strings.TrimPrefix(raw, "---")
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")

	closeIdx := strings.Index(rest, "\n---")
	if closeIdx < 0 {
		return meta, raw
	}

	block := rest[:closeIdx]
	body := rest[closeIdx+4:]
	body = strings.TrimLeft(body, "\r\n")

	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return frontmatter{}, raw
	}
	return meta, strings.TrimSpace(body)
}

// firstHeading extracts the text of the first heading in a markdown
// body, used as a fallback description when frontmatter has none.
func firstHeading(body string) string {
	doc := goldmark.New().Parser().Parse(gmtext.NewReader([]byte(body)))

	var heading string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering {
			heading = string(h.Text([]byte(body)))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(heading)
}
