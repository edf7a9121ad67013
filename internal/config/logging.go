package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// LevelTrace sits below [slog.LevelDebug] and carries the full JSON
// request and response payloads exchanged with the model endpoint. The
// value -8 is the de facto Trace slot among Go projects that extend
// slog below Debug.
//
// Trace output includes entire conversations; enable it only when
// diagnosing wire-format problems with a provider.
const LevelTrace = slog.Level(-8)

// ParseLogLevel converts the log_level config value (or -log-level
// flag) to an [slog.Level]. Matching is case-insensitive with
// surrounding whitespace trimmed; "trace", "debug", "info" (also the
// empty string), "warn"/"warning", and "error" are accepted, anything
// else is an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: trace, debug, info, warn, error)", s)
	}
}

// ReplaceLogLevelNames is an [slog.HandlerOptions.ReplaceAttr] function
// that renders [LevelTrace] as "TRACE". slog knows nothing about custom
// levels and would otherwise print it as "DEBUG-4".
func ReplaceLogLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}
