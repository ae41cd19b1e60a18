// Package logging builds the logrus logger shared by the triage services.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/crisis-triage-mcp-server/internal/domain"
)

// Output targets
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
)

// NewLogger creates a logger from the logging configuration. Unknown levels
// fall back to info; the MCP stdio transport owns stdout, so anything other
// than "stdout" writes to stderr.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetOutput(outputFor(cfg.Output))

	return logger
}

// NewDiscardLogger returns a logger that drops everything. Used by tests.
func NewDiscardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func outputFor(target string) io.Writer {
	if strings.EqualFold(target, OutputStdout) {
		return os.Stdout
	}
	return os.Stderr
}
