// Package debug provides category-based debug logging for the in-docker
// test runner.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): INDOCKER_DEBUG env or config
//   - Levels (HOW MUCH detail): INDOCKER_LOG_LEVEL env or config
//
// Usage:
//
//	debug.Log("sandbox", "interpreter located", "path", python)
//
// Categories: sandbox, closure, invoke, runner, config, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below slog.LevelDebug; at TRACE, full wire payloads are
// logged untruncated.
const LevelTrace = slog.LevelDebug - 4

// categories holds the set of enabled debug categories. Read-only after
// Init(), so no synchronization needed.
var categories map[string]bool

func init() {
	categories = parseCategories(os.Getenv("INDOCKER_DEBUG"))
}

// Init configures the debug system from config values. Environment
// variables take precedence over config.
func Init(configCategories, configLevel string) {
	cats := os.Getenv("INDOCKER_DEBUG")
	if cats == "" {
		cats = configCategories
	}
	categories = parseCategories(cats)

	level := os.Getenv("INDOCKER_LOG_LEVEL")
	if level == "" {
		level = configLevel
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug message for the given category; a no-op when the
// category is not enabled.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for the given category. Only visible
// when INDOCKER_LOG_LEVEL=TRACE.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(nil, LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseCategories(s string) map[string]bool {
	cats := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			cats[part] = true
		}
	}
	return cats
}
