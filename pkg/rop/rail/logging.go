package rail

import (
	"context"
	"log/slog"

	"github.com/QuantechTP/TPL-extension/pkg/rop"
)

// FailureLogger is the logging collaborator of the failure sink. It is
// called once per failed flow and must not panic; a panic is swallowed.
type FailureLogger interface {
	LogFailure(ctx context.Context, failure rop.FailureRecord)
}

// FailureLoggerFunc adapts a function to FailureLogger.
type FailureLoggerFunc func(ctx context.Context, failure rop.FailureRecord)

func (f FailureLoggerFunc) LogFailure(ctx context.Context, failure rop.FailureRecord) {
	f(ctx, failure)
}

// SlogLogger writes one structured record per failure.
type SlogLogger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogLogger logs failures at error level. A nil logger means [slog.Default].
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger, level: slog.LevelError}
}

// WithLevel returns a copy logging at level.
func (l *SlogLogger) WithLevel(level slog.Level) *SlogLogger {
	return &SlogLogger{logger: l.logger, level: level}
}

func (l *SlogLogger) LogFailure(ctx context.Context, failure rop.FailureRecord) {
	l.logger.LogAttrs(ctx, l.level, "pipeline failure",
		slog.String("id", failure.ID().String()),
		slog.String("message", failure.Message()),
		slog.Any("error", failure.Err()),
		slog.Bool("cancel", failure.IsCancel()),
		slog.Time("created_at", failure.CreatedAt()),
	)
}

type loggerKey struct{}

// Logger returns the [slog.Logger] from the context, or [slog.Default] if none is set.
//
// Stages store their logger in the context handed to transforms, so a
// transform can log with the stage attributes already attached:
//
//	func parse(ctx context.Context, s string) (int, error) {
//	    rail.Logger(ctx).Debug("parsing", "input", s)
//	    return strconv.Atoi(s)
//	}
func Logger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// WithLogger stores logger in ctx for [Logger].
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}
