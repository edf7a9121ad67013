// Package config handles scribe configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./scribe.yaml, ~/.config/scribe/scribe.yaml, /etc/scribe/scribe.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"scribe.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "scribe", "scribe.yaml"))
	}

	paths = append(paths, "/etc/scribe/scribe.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// An empty return with nil error means no config file was found anywhere,
// which is fine: scribe runs on defaults plus environment variables.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", nil
}

// Config holds all scribe configuration.
type Config struct {
	Model      ModelConfig      `yaml:"model"`
	Workspace  WorkspaceConfig  `yaml:"workspace"`
	ShellExec  ShellExecConfig  `yaml:"shell_exec"`
	Compaction CompactionConfig `yaml:"compaction"`
	Subagent   SubagentConfig   `yaml:"subagent"`
	SkillsDir  string           `yaml:"skills_dir"`
	LogLevel   string           `yaml:"log_level"`
}

// ModelConfig defines the model endpoint settings. Every field falls back
// to an environment variable chain when left empty (see applyEnv).
type ModelConfig struct {
	// Name is the model identifier sent with every request.
	Name string `yaml:"name"`
	// BaseURL is the OpenAI-compatible endpoint root.
	BaseURL string `yaml:"base_url"`
	// APIKey authenticates requests. Optional for local endpoints.
	APIKey string `yaml:"api_key"`
}

// WorkspaceConfig defines the agent's working root for file operations.
type WorkspaceConfig struct {
	// Path is the root directory for file tools and shell commands.
	// All tool paths resolve against this directory. Defaults to the
	// process working directory.
	Path string `yaml:"path"`
}

// ShellExecConfig defines shell execution limits.
type ShellExecConfig struct {
	// TimeoutSec is the per-command timeout in seconds (default 120,
	// capped at 300).
	TimeoutSec int `yaml:"timeout_sec"`
	// DeniedPatterns are command substrings to block. When empty, the
	// built-in denylist applies. This is advisory filtering, not a
	// security boundary.
	DeniedPatterns []string `yaml:"denied_patterns"`
}

// CompactionConfig tunes the context-compaction pipeline.
type CompactionConfig struct {
	// ThresholdTokens triggers auto-compaction when the estimated token
	// count of the conversation exceeds it (default 50000).
	ThresholdTokens int `yaml:"threshold_tokens"`
	// CharsPerToken is the divisor of the character-count token estimate
	// (default 4). The estimate is deliberately coarse; tune rather than
	// trust.
	CharsPerToken int `yaml:"chars_per_token"`
	// KeepRecent is the number of recent tool results micro-compaction
	// leaves untouched (default 3).
	KeepRecent int `yaml:"keep_recent"`
}

// SubagentConfig selects the delegation backend.
type SubagentConfig struct {
	// Backend is "inprocess" (default) or "subprocess". The subprocess
	// backend re-invokes the scribe binary for OS-level isolation.
	Backend string `yaml:"backend"`
	// MaxIterations caps a subagent's loop (default 30).
	MaxIterations int `yaml:"max_iterations"`
}

// Load reads configuration from a YAML file, expands environment
// variables in its text, and fills the gaps from the environment
// fallback chain and built-in defaults. File values win over the
// environment; the environment wins over defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the configuration used when no config file exists:
// environment fallbacks over built-in defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

// applyEnv fills empty model fields from the environment. The fallback
// order matches what users of OpenAI-compatible proxies already export:
// OPENAI_* first, then the generic names, then ANTHROPIC_* (many proxy
// setups only set the latter).
func (c *Config) applyEnv() {
	if c.Model.APIKey == "" {
		c.Model.APIKey = firstEnv("OPENAI_API_KEY", "API_KEY", "ANTHROPIC_API_KEY")
	}
	if c.Model.BaseURL == "" {
		c.Model.BaseURL = firstEnv("OPENAI_BASE_URL", "BASE_URL", "ANTHROPIC_BASE_URL")
	}
	if c.Model.Name == "" {
		c.Model.Name = os.Getenv("MODEL_ID")
	}
}

// applyDefaults fills any remaining zero fields with built-in defaults.
func (c *Config) applyDefaults() {
	if c.Model.Name == "" {
		c.Model.Name = "deepseek-chat"
	}
	if c.Model.BaseURL == "" {
		c.Model.BaseURL = "https://api.openai.com/v1"
	}
	if c.ShellExec.TimeoutSec <= 0 {
		c.ShellExec.TimeoutSec = 120
	}
	if c.Compaction.ThresholdTokens <= 0 {
		c.Compaction.ThresholdTokens = 50000
	}
	if c.Compaction.CharsPerToken <= 0 {
		c.Compaction.CharsPerToken = 4
	}
	if c.Compaction.KeepRecent <= 0 {
		c.Compaction.KeepRecent = 3
	}
	if c.Subagent.Backend == "" {
		c.Subagent.Backend = "inprocess"
	}
	if c.Subagent.MaxIterations <= 0 {
		c.Subagent.MaxIterations = 30
	}
	if c.SkillsDir == "" {
		c.SkillsDir = "skills"
	}
}

// firstEnv returns the first non-empty value among the named variables.
func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}
