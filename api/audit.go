package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditRegister          AuditEvent = "register"
	AuditLoginSuccess      AuditEvent = "login_success"
	AuditLoginFailure      AuditEvent = "login_failure"
	AuditLoginRateLimited  AuditEvent = "login_rate_limited"
	AuditLogout            AuditEvent = "logout"
	AuditUnlockSuccess     AuditEvent = "unlock_success"
	AuditUnlockFailure     AuditEvent = "unlock_failure"
	AuditUnlockRateLimited AuditEvent = "unlock_rate_limited"
	AuditSessionLocked     AuditEvent = "session_locked"
	AuditForcedLogout      AuditEvent = "forced_logout"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
	webhook *auditWebhook
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry for a request-scoped event.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)

	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	al.forward(event, r.RemoteAddr, baseAttrs)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logSystem writes an audit entry for an event with no originating request,
// such as a supervisor-initiated lock or logout.
func (al *auditLogger) logSystem(event AuditEvent, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", baseAttrs...)
	al.forward(event, "", baseAttrs)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logEvent is a convenience for events with an account ID.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, accountID string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("account_id", accountID),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a failed authentication attempt.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// forward enqueues the event on the external webhook, if one is configured.
// Only the lifecycle fields the collector keys on are forwarded; the full
// attribute set stays in the structured log and the audit store.
func (al *auditLogger) forward(event AuditEvent, remoteAddr string, attrs []slog.Attr) {
	if al.webhook == nil {
		return
	}
	evt := webhookEvent{
		Event:      string(event),
		RemoteAddr: remoteAddr,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, a := range attrs {
		switch a.Key {
		case "account_id":
			evt.AccountID = a.Value.String()
		case "session_id":
			evt.SessionID = a.Value.String()
		case "reason":
			evt.Reason = a.Value.String()
		}
	}
	al.webhook.enqueue(evt)
}
