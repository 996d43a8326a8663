// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TenantIDKey is the context key for tenant ID
	TenantIDKey contextKey = "tenant_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and tenant_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok && tenantID != "" {
		newLogger = newLogger.WithTenant(tenantID)
	}

	return newLogger
}

// WithTenant returns a logger scoped to a tenant.
func (l *Logger) WithTenant(tenantID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("tenant_id", tenantID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// IntentEventRecorded logs the creation of an intent event.
func (l *Logger) IntentEventRecorded(tenantID uuid.UUID, action string, score int, idempotencyKey string) {
	l.Info("intent_event_recorded",
		slog.String("tenant_id", tenantID.String()),
		slog.String("action", action),
		slog.Int("intent_score", score),
		slog.String("idempotency_key", idempotencyKey),
	)
}

// IntentEventDuplicate logs a deduplicated intent event delivery.
func (l *Logger) IntentEventDuplicate(tenantID uuid.UUID, idempotencyKey string) {
	l.Debug("intent_event_duplicate",
		slog.String("tenant_id", tenantID.String()),
		slog.String("idempotency_key", idempotencyKey),
	)
}

// LeadScoreApplied logs a lead score change for a contact.
func (l *Logger) LeadScoreApplied(tenantID, contactID uuid.UUID, delta int, rulesMatched int) {
	l.Info("lead_score_applied",
		slog.String("tenant_id", tenantID.String()),
		slog.String("contact_id", contactID.String()),
		slog.Int("delta", delta),
		slog.Int("rules_matched", rulesMatched),
	)
}

// ScoringFallback logs a degraded scoring path (default base score used).
func (l *Logger) ScoringFallback(tenantID uuid.UUID, action string, err error) {
	l.Warn("scoring_fallback",
		slog.String("tenant_id", tenantID.String()),
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
