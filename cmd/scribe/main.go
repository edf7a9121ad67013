// Command scribe is a minimal autonomous coding agent.
//
// With no argument it starts an interactive session; with a single
// argument it answers that prompt and exits. The subprocess subagent
// backend relies on the one-shot mode printing only the final answer
// to stdout.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/scribe-agent/scribe/internal/agent"
	"github.com/scribe-agent/scribe/internal/buildinfo"
	"github.com/scribe-agent/scribe/internal/compact"
	"github.com/scribe-agent/scribe/internal/config"
	"github.com/scribe-agent/scribe/internal/conversation"
	"github.com/scribe-agent/scribe/internal/delegate"
	"github.com/scribe-agent/scribe/internal/llm"
	"github.com/scribe-agent/scribe/internal/prompts"
	"github.com/scribe-agent/scribe/internal/skills"
	"github.com/scribe-agent/scribe/internal/todo"
	"github.com/scribe-agent/scribe/internal/tools"
)

const usage = `scribe - a minimal autonomous coding agent

Usage:
  scribe [flags]                  interactive session
  scribe [flags] [--] "<prompt>"  answer one prompt and exit
  scribe init [dir]               write a starter scribe.yaml and sample skill
  scribe version                  print version information

Flags:
  -config <path>      config file (default: search standard locations)
  -log-level <level>  trace, debug, info, warn, error (default: info)
  -h, -help           show this help

Everything after -- is taken as the prompt, never as a flag or
subcommand.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cliArgs is the parsed command line. rawPrompt marks positionals that
// came after the -- terminator; those are never subcommands.
type cliArgs struct {
	configPath string
	logLevel   string
	help       bool
	rawPrompt  bool
	positional []string
}

func parseArgs(args []string) (cliArgs, error) {
	var a cliArgs
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--":
			a.rawPrompt = true
			a.positional = append(a.positional, args[i+1:]...)
			return a, nil
		case "-config", "--config":
			i++
			if i >= len(args) {
				return a, fmt.Errorf("-config requires a path")
			}
			a.configPath = args[i]
		case "-log-level", "--log-level":
			i++
			if i >= len(args) {
				return a, fmt.Errorf("-log-level requires a level")
			}
			a.logLevel = args[i]
		case "-h", "-help", "--help":
			a.help = true
		default:
			a.positional = append(a.positional, args[i])
		}
	}
	return a, nil
}

func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	a, err := parseArgs(args)
	if err != nil {
		return err
	}
	if a.help {
		fmt.Fprint(stdout, usage)
		return nil
	}
	positional := a.positional

	if !a.rawPrompt && len(positional) > 0 {
		switch positional[0] {
		case "version":
			fmt.Fprintln(stdout, buildinfo.String())
			return nil
		case "init":
			dir := "."
			if len(positional) > 1 {
				dir = positional[1]
			}
			return runInit(stdout, dir)
		}
	}

	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(stderr, cfg.LogLevel, a.logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	loop, client, err := buildLoop(cfg, logger)
	if err != nil {
		return err
	}

	switch len(positional) {
	case 0:
		// A dead endpoint should be visible before the first request,
		// not after typing a long prompt.
		if err := client.Ping(ctx); err != nil {
			logger.Warn("model endpoint unreachable", "base_url", cfg.Model.BaseURL, "error", err)
		}
		return runREPL(ctx, stdin, stdout, loop)
	case 1:
		return runOneShot(ctx, stdout, loop, positional[0])
	default:
		return fmt.Errorf("expected at most one prompt argument, got %d", len(positional))
	}
}

func loadConfig(explicit string) (*config.Config, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfgLevel, flagLevel string) (*slog.Logger, error) {
	levelName := cfgLevel
	if flagLevel != "" {
		levelName = flagLevel
	}
	if levelName == "" {
		levelName = "info"
	}
	level, err := config.ParseLogLevel(levelName)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	})
	return slog.New(handler), nil
}

// buildLoop wires the full agent: provider client, tool registry,
// compaction pipeline, and delegation backend.
func buildLoop(cfg *config.Config, logger *slog.Logger) (*agent.Loop, llm.Client, error) {
	workspace := cfg.Workspace.Path
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, err
		}
		workspace = wd
	}
	workspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, nil, err
	}

	client := llm.NewOpenAIClient(cfg.Model.BaseURL, cfg.Model.APIKey, logger)

	files := tools.NewFileTools(workspace)
	shell := tools.NewShellExec(workspace, cfg.ShellExec.DeniedPatterns,
		time.Duration(cfg.ShellExec.TimeoutSec)*time.Second)
	registry := tools.NewRegistry(files, shell)

	todo.NewManager().RegisterTool(registry)

	skillsDir := cfg.SkillsDir
	if !filepath.IsAbs(skillsDir) {
		skillsDir = filepath.Join(workspace, skillsDir)
	}
	index, err := skills.LoadDir(skillsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load skills: %w", err)
	}
	index.RegisterTool(registry)

	compact.RegisterTool(registry)
	pipeline := compact.New(compact.Config{
		ThresholdTokens: cfg.Compaction.ThresholdTokens,
		CharsPerToken:   cfg.Compaction.CharsPerToken,
		KeepRecent:      cfg.Compaction.KeepRecent,
		TranscriptDir:   filepath.Join(workspace, ".transcripts"),
	}, client, cfg.Model.Name, logger)

	var runner delegate.Runner
	switch cfg.Subagent.Backend {
	case "", "inprocess":
		runner = delegate.NewInProcess(client, cfg.Model.Name, registry,
			workspace, cfg.Subagent.MaxIterations, logger)
	case "subprocess":
		runner = delegate.NewSubprocess("", workspace, logger)
	default:
		return nil, nil, fmt.Errorf("unknown subagent backend %q", cfg.Subagent.Backend)
	}
	delegate.RegisterTool(registry, runner)

	system := prompts.System(workspace, index.DescribeAll())
	loop := agent.New(client, cfg.Model.Name, registry, system,
		agent.WithCompactor(pipeline),
		agent.WithLogger(logger),
	)
	return loop, client, nil
}

// runOneShot answers a single prompt. Only the final answer goes to
// stdout; logs go to stderr, so subprocess subagents see clean output.
func runOneShot(ctx context.Context, stdout io.Writer, loop *agent.Loop, prompt string) error {
	log := conversation.New(llm.Message{Role: "user", Content: prompt})
	answer, err := loop.Run(ctx, log)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, answer)
	return nil
}

// runREPL runs an interactive session over one shared conversation.
// Empty input, "q", "exit", or EOF ends the session.
func runREPL(ctx context.Context, stdin io.Reader, stdout io.Writer, loop *agent.Loop) error {
	fmt.Fprintf(stdout, "%s\nType a request, or press Enter to quit.\n", buildinfo.String())

	log := conversation.New()
	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" || input == "q" || input == "exit" {
			return nil
		}

		log.Append(llm.Message{Role: "user", Content: input})
		answer, err := loop.Run(ctx, log)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(stdout, "\nInterrupted.")
				return nil
			}
			fmt.Fprintln(stdout, "Error:", err)
			continue
		}
		fmt.Fprintln(stdout, answer)
	}
}
