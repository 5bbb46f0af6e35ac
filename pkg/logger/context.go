package logger

import (
	"context"
	"log/slog"
)

type ctxKey string

const loggerKey ctxKey = "logger"

// With stores a logger enriched with fields (trace id, user id) on ctx.
func With(ctx context.Context, fields ...any) context.Context {
	l := From(ctx).With(fields...)
	return context.WithValue(ctx, loggerKey, l)
}

// From returns the request-scoped logger, or fallback, or the default logger.
func From(ctx context.Context, fallback ...*slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	for _, l := range fallback {
		if l != nil {
			return l
		}
	}
	return LoggerWrapper()
}
