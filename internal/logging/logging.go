// Package logging implements task.Logger on top of zerolog.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/slackmgr/todos/task"
)

// Formats accepted by [New].
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Logger is a [task.Logger] backed by a zerolog.Logger.
type Logger struct {
	zl zerolog.Logger
}

var _ task.Logger = (*Logger)(nil)

// New creates a Logger writing to w at the given level ("debug", "info",
// "warn", "error"). format is either [FormatJSON] or [FormatConsole].
func New(w io.Writer, level, format string) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch format {
	case FormatJSON, "":
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()

	return &Logger{zl: zl}, nil
}

func (l *Logger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

func (l *Logger) Infof(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Error(msg string) {
	l.zl.Error().Msg(msg)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

//nolint:ireturn
func (l *Logger) WithField(key string, value any) task.Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

//nolint:ireturn
func (l *Logger) WithFields(fields map[string]any) task.Logger {
	return &Logger{zl: l.zl.With().Fields(fields).Logger()}
}
