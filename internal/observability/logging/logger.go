// Package logging builds the process-wide slog logger. Both binaries log
// JSON to stdout with a "service" attribute ("api" or "worker") so pipeline
// events for one document can be correlated across processes, alongside the
// request_id and support_reference attributes the HTTP layer attaches.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger returns a JSON logger tagged with the service name. The
// level string comes straight from config; unrecognized values mean info.
func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
