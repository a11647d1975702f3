package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	sessionKey   contextKey = "session"
	companyKey   contextKey = "empresa_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds the request ID to ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithSession adds a session fingerprint to ctx. The raw cookie value is
// never logged.
func WithSession(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, sessionKey, fingerprint)
}

// WithCompany adds the active company id to ctx
func WithCompany(ctx context.Context, empresaID string) context.Context {
	return context.WithValue(ctx, companyKey, empresaID)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// GetSession retrieves the session fingerprint from context
func GetSession(ctx context.Context) string { return stringValue(ctx, sessionKey) }

// GetCompany retrieves the company id from context
func GetCompany(ctx context.Context) string { return stringValue(ctx, companyKey) }

// GetTraceID extracts the trace ID from the context's span.
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// L returns the context logger enriched with trace, request, session and
// company fields.
//
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
func L(ctx context.Context) *zap.Logger {
	return enrich(ctx, FromContext(ctx))
}

// Enrich adds the context fields to an explicit logger.
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	return enrich(ctx, l)
}

func enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	var fields []zap.Field
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if v := GetRequestID(ctx); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := GetSession(ctx); v != "" {
		fields = append(fields, zap.String("session", v))
	}
	if v := GetCompany(ctx); v != "" {
		fields = append(fields, zap.String("empresa_id", v))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
