package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// EventIDKey is the context key for the event ID being processed
	EventIDKey contextKey = "event_id"
	// TenantIDKey is the context key for tenant ID
	TenantIDKey contextKey = "tenant_id"
	// ReturnIDKey is the context key for the return being worked on
	ReturnIDKey contextKey = "return_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger
// if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithEventID adds the event ID to context and returns an enriched logger
func WithEventID(ctx context.Context, logger *zap.Logger, eventID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, EventIDKey, eventID)
	enriched := logger.With(zap.String("event_id", eventID))
	return WithContext(ctx, enriched), enriched
}

// WithTenantID adds the tenant ID to context and returns an enriched logger
func WithTenantID(ctx context.Context, logger *zap.Logger, tenantID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, TenantIDKey, tenantID)
	enriched := logger.With(zap.String("tenant_id", tenantID))
	return WithContext(ctx, enriched), enriched
}

// WithReturnID adds the return ID to context and returns an enriched logger
func WithReturnID(ctx context.Context, logger *zap.Logger, returnID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, ReturnIDKey, returnID)
	enriched := logger.With(zap.String("return_id", returnID))
	return WithContext(ctx, enriched), enriched
}

// GetEventID retrieves the event ID from context
func GetEventID(ctx context.Context) string {
	if eventID, ok := ctx.Value(EventIDKey).(string); ok {
		return eventID
	}
	return ""
}

// GetTenantID retrieves the tenant ID from context
func GetTenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}

// GetReturnID retrieves the return ID from context
func GetReturnID(ctx context.Context) string {
	if returnID, ok := ctx.Value(ReturnIDKey).(string); ok {
		return returnID
	}
	return ""
}
