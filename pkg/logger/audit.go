package logger

import (
	"context"
	"log/slog"
	"time"
)

// Gate audit event types
const (
	EventGatePassword = "gate_password"
	EventGateToken    = "gate_token"
	EventGateLockout  = "gate_lockout"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	ClientAddress string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
	env    string
}

// NewAuditLogger creates a new audit logger. Client addresses are masked when env is production.
func NewAuditLogger(logger *slog.Logger, env string) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		env:    env,
	}
}

// LogGateAttempt logs a password or token decision at the gate
func (al *AuditLogger) LogGateAttempt(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "gate"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ClientAddress != "" {
		attrs = append(attrs, AddressAttr("client_address", event.ClientAddress, al.env))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogLockout logs a client address entering lockout
func (al *AuditLogger) LogLockout(ctx context.Context, clientAddress string, lockedUntil time.Time) {
	al.logger.LogAttrs(ctx, slog.LevelWarn, "audit",
		slog.String("audit_type", "gate"),
		slog.String("event_type", EventGateLockout),
		AddressAttr("client_address", clientAddress, al.env),
		slog.String("locked_until", lockedUntil.UTC().Format(time.RFC3339)),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}
