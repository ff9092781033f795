package logger

import "context"

// LoggerContext accumulates key/value pairs over the course of an operation
// so that later log lines carry everything learned so far.
type LoggerContext struct {
	logger *Logger
	attrs  []any
}

// NewLoggerContext wraps l for incremental attribute collection.
func NewLoggerContext(l *Logger) *LoggerContext {
	return &LoggerContext{logger: l}
}

// Add appends a key/value pair to every subsequent log line.
func (lc *LoggerContext) Add(key string, value any) {
	lc.attrs = append(lc.attrs, key, value)
}

// Debug logs at LevelDebug with the accumulated attributes.
func (lc *LoggerContext) Debug(ctx context.Context, msg string, args ...any) {
	lc.logger.Debugc(ctx, 4, msg, lc.merge(args)...)
}

// Info logs at LevelInfo with the accumulated attributes.
func (lc *LoggerContext) Info(ctx context.Context, msg string, args ...any) {
	lc.logger.Info(ctx, msg, lc.merge(args)...)
}

// Warn logs at LevelWarn with the accumulated attributes.
func (lc *LoggerContext) Warn(ctx context.Context, msg string, args ...any) {
	lc.logger.Warn(ctx, msg, lc.merge(args)...)
}

// Error logs at LevelError with the accumulated attributes.
func (lc *LoggerContext) Error(ctx context.Context, msg string, args ...any) {
	lc.logger.Error(ctx, msg, lc.merge(args)...)
}

func (lc *LoggerContext) merge(args []any) []any {
	out := make([]any, 0, len(lc.attrs)+len(args))
	out = append(out, lc.attrs...)
	return append(out, args...)
}
