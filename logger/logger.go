// Package logger configures the process-wide zerolog logger for emberd.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// InitWithOptions builds the root logger. With a logFile it appends JSON
// records to that file; otherwise it writes to stdout, optionally through
// zerolog's console writer when pretty is set. The level comes from the
// LOG_LEVEL environment variable and defaults to info.
func InitWithOptions(logFile string, pretty bool) (zerolog.Logger, error) {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))

	var output io.Writer = os.Stdout
	if logFile != "" {
		//nolint:gosec // G304: log file path comes from the operator
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		output = file
	} else if pretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()

	evt := log.Info().Str("level", level.String())
	if logFile != "" {
		evt = evt.Str("path", logFile)
	} else {
		evt = evt.Str("output", "stdout").Bool("pretty", pretty)
	}
	evt.Msg("Logger initialized")

	return log, nil
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
