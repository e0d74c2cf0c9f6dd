package task

import "context"

// Logger is the structured logger used throughout the module.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...any)
	Info(msg string)
	Infof(format string, args ...any)
	Error(msg string)
	Errorf(format string, args ...any)
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
}

type loggerKey struct{}

// ContextWithLogger returns a copy of ctx carrying logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext returns the logger stored in ctx by [ContextWithLogger].
// If there is none it returns fallback, or a logger that discards everything
// when fallback is nil.
//
//nolint:ireturn
func LoggerFromContext(ctx context.Context, fallback Logger) Logger {
	if logger, ok := ctx.Value(loggerKey{}).(Logger); ok && logger != nil {
		return logger
	}

	if fallback != nil {
		return fallback
	}

	return NopLogger()
}

// NopLogger returns a Logger that discards all output.
//
//nolint:ireturn
func NopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string)                   {}
func (nopLogger) Debugf(string, ...any)          {}
func (nopLogger) Info(string)                    {}
func (nopLogger) Infof(string, ...any)           {}
func (nopLogger) Error(string)                   {}
func (nopLogger) Errorf(string, ...any)          {}
func (n nopLogger) WithField(string, any) Logger { return n }
func (n nopLogger) WithFields(map[string]any) Logger {
	return n
}
