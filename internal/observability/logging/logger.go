package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// NewLogger builds a slog logger backed by charmbracelet/log. Logs go to
// stderr so stdout stays reserved for prediction records.
func NewLogger(service, level, format string) *slog.Logger {
	return NewLoggerTo(os.Stderr, service, level, format)
}

func NewLoggerTo(w io.Writer, service, level, format string) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           parseLevel(level),
		Formatter:       parseFormat(format),
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func parseFormat(format string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
