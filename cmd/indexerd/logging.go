package main

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// newLogger builds the process-wide structured logger (SPEC_FULL.md Ambient
// stack: log/slog, HUMAN_LOGGING selecting handler, RUST_LOG-style minimum
// level). --log-level, when set, takes priority over $RUST_LOG.
func newLogger(levelFlag string) *slog.Logger {
	level := resolveLevel(levelFlag)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if humanLogging() {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func humanLogging() bool {
	v, ok := os.LookupEnv("HUMAN_LOGGING")
	if !ok {
		return true // a TTY-friendly default; JSON is opt-in via HUMAN_LOGGING=false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

func resolveLevel(flagVal string) slog.Level {
	name := flagVal
	if name == "" {
		name = os.Getenv("RUST_LOG")
	}
	return parseLevel(name)
}

// parseLevel maps the five module log levels (§4.5 ff_log_data) onto slog's
// level scale; TRACE has no slog equivalent so it is placed one notch below
// Debug. The host boundary's log sink (run.go) writes module LogTrace output
// at Debug level.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "trace":
		return slog.LevelDebug - 4
	default:
		return slog.LevelInfo
	}
}
