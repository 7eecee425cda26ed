package api

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/internquest/sessionguard/internal/util"
	"github.com/internquest/sessionguard/internal/uuid"
	"github.com/internquest/sessionguard/lifecycle"
	"github.com/internquest/sessionguard/session"
)

// unlockSecretLen is the size of the per-session secret cached while a
// session is unlocked. Locking wipes it; unlock re-seeds it.
const unlockSecretLen = 32

// Register handles POST /auth/register.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[RegisterRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}
	if req.Passphrase == "" {
		writeError(w, http.StatusBadRequest, "passphrase is required")
		return
	}

	acct, err := a.accounts.Create(req.AccountID, req.Passphrase)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logEvent(AuditRegister, r, acct.ID)
	a.auditStore.append(AuditRegister, acct.ID, "", "", r.RemoteAddr)
	writeJSON(w, http.StatusCreated, RegisterResponse{
		AccountID: acct.ID,
		CreatedAt: acct.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Login handles POST /auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if req.AccountID == "" || req.Passphrase == "" {
		writeError(w, http.StatusBadRequest, "account_id and passphrase are required")
		return
	}

	if blocked, retryAfter := a.limiter.check(req.AccountID); blocked {
		a.audit.logFailure(AuditLoginRateLimited, r, "rate limited",
			slog.String("account_id", req.AccountID))
		writeRateLimited(w, retryAfter)
		return
	}

	if err := a.accounts.Verify(req.AccountID, req.Passphrase); err != nil {
		a.limiter.recordFailure(req.AccountID)
		a.audit.logFailure(AuditLoginFailure, r, "invalid credentials",
			slog.String("account_id", req.AccountID))
		mapError(w, err)
		return
	}
	a.limiter.recordSuccess(req.AccountID)

	token := uuid.New()
	now := time.Now().UTC()
	sess := session.Session{
		ID:             token,
		AccountID:      req.AccountID,
		Status:         session.StatusActive,
		CreatedAt:      now,
		ExpiresAt:      now.Add(a.sessionTTL),
		LastActivityAt: now,
	}
	a.sessions.Put(sess)

	secret, err := util.RandomBytes(unlockSecretLen)
	if err != nil {
		a.sessions.Delete(token)
		writeInternalError(w, "failed to initialize session", err)
		return
	}
	a.secrets.Put(token, secret)

	if err := a.supervisor.Watch(token); err != nil {
		a.sessions.Delete(token)
		a.secrets.Drop(token)
		writeInternalError(w, "failed to start session tracking", err)
		return
	}

	writeSessionCookie(w, r, token, int(a.sessionTTL.Seconds()))
	a.audit.logEvent(AuditLoginSuccess, r, req.AccountID)
	a.auditStore.append(AuditLoginSuccess, req.AccountID, token, "", r.RemoteAddr)
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout handles POST /auth/logout. Works for locked sessions too: a user
// may always end their own session.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	a.supervisor.Unwatch(sess.ID)
	a.secrets.Drop(sess.ID)
	a.sessions.Delete(sess.ID)
	clearSessionCookie(w, r)

	a.audit.logEvent(AuditLogout, r, sess.AccountID)
	a.auditStore.append(AuditLogout, sess.AccountID, sess.ID, "", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

// Unlock handles POST /auth/unlock: passphrase re-authentication for a
// locked session. Unlocking an already-active session is a no-op success.
func (a *API) Unlock(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	req, ok := decodeJSON[UnlockRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if req.Passphrase == "" {
		writeError(w, http.StatusBadRequest, "passphrase is required")
		return
	}

	if blocked, retryAfter := a.limiter.check(sess.AccountID); blocked {
		a.audit.logFailure(AuditUnlockRateLimited, r, "rate limited",
			slog.String("account_id", sess.AccountID))
		writeRateLimited(w, retryAfter)
		return
	}

	if err := a.accounts.Verify(sess.AccountID, req.Passphrase); err != nil {
		a.limiter.recordFailure(sess.AccountID)
		a.audit.logFailure(AuditUnlockFailure, r, "invalid passphrase",
			slog.String("account_id", sess.AccountID),
			slog.String("session_id", sess.ID))
		mapError(w, err)
		return
	}
	a.limiter.recordSuccess(sess.AccountID)

	if !a.supervisor.Watched(sess.ID) {
		// Session restored from persistent storage after a restart.
		if err := a.supervisor.Watch(sess.ID); err != nil {
			writeInternalError(w, "failed to resume session tracking", err)
			return
		}
	}
	a.supervisor.Unlock(sess.ID)

	secret, err := util.RandomBytes(unlockSecretLen)
	if err != nil {
		writeInternalError(w, "failed to reseed session secret", err)
		return
	}
	a.secrets.Put(sess.ID, secret)

	a.audit.logEvent(AuditUnlockSuccess, r, sess.AccountID,
		slog.String("session_id", sess.ID))
	a.auditStore.append(AuditUnlockSuccess, sess.AccountID, sess.ID, "", r.RemoteAddr)
	a.writeStatus(w, sess.ID)
}

// Heartbeat handles POST /session/heartbeat: the client reports user
// activity, deferring both the lock and logout countdowns.
func (a *API) Heartbeat(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if !a.supervisor.RegisterActivity(sess.ID) {
		// Session restored from persistent storage after a restart:
		// resume tracking transparently.
		if err := a.supervisor.Watch(sess.ID); err != nil {
			writeInternalError(w, "failed to resume session tracking", err)
			return
		}
		a.supervisor.RegisterActivity(sess.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Visibility handles POST /session/visibility: the client reports its
// app-visibility transitions so backgrounding policy can apply.
func (a *API) Visibility(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	req, ok := decodeJSON[VisibilityRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	var v lifecycle.Visibility
	switch req.State {
	case "active":
		v = lifecycle.VisibilityActive
	case "background":
		v = lifecycle.VisibilityBackground
	case "inactive":
		v = lifecycle.VisibilityInactive
	default:
		writeError(w, http.StatusBadRequest, "state must be active, background, or inactive")
		return
	}

	if !a.supervisor.SetVisibility(sess.ID, v) {
		if err := a.supervisor.Watch(sess.ID); err != nil {
			writeInternalError(w, "failed to resume session tracking", err)
			return
		}
		a.supervisor.SetVisibility(sess.ID, v)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /session/status.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	a.writeStatus(w, sess.ID)
}

// writeStatus re-reads the session so a lock applied mid-request is
// reflected.
func (a *API) writeStatus(w http.ResponseWriter, sessionID string) {
	sess, ok := a.sessions.Get(sessionID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "session expired or unknown")
		return
	}
	resp := StatusResponse{
		AccountID:      sess.AccountID,
		Status:         string(sess.Status),
		LockReason:     sess.LockReason,
		LastActivityAt: sess.LastActivityAt.UTC().Format(time.RFC3339),
		ExpiresAt:      sess.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if !sess.LockedAt.IsZero() {
		resp.LockedAt = sess.LockedAt.UTC().Format(time.RFC3339)
	}
	// The fingerprint identifies the current unlock secret without
	// revealing it. It disappears on lock and changes on every unlock,
	// letting a client detect that a relock or server restart invalidated
	// material derived from the old secret.
	a.secrets.Use(sess.ID, func(secret []byte) {
		sum := sha256.Sum256(secret)
		resp.SecretID = hex.EncodeToString(sum[:8])
	})
	writeJSON(w, http.StatusOK, resp)
}

// ListSessions handles GET /sessions.
func (a *API) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := a.sessions.List()
	resp := ListSessionsResponse{Sessions: make([]SessionSummary, 0, len(sessions))}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, SessionSummary{
			ID:             sess.ID,
			AccountID:      sess.AccountID,
			Status:         string(sess.Status),
			LastActivityAt: sess.LastActivityAt.UTC().Format(time.RFC3339),
			ExpiresAt:      sess.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAudit handles GET /audit with limit/offset pagination.
func (a *API) ListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := a.auditStore.list()
	if err != nil {
		writeInternalError(w, "failed to list audit entries", err)
		return
	}
	limit, offset := parsePagination(r)
	start, end, meta := paginateSlice(len(entries), limit, offset)
	writeJSON(w, http.StatusOK, ListAuditResponse{
		Entries:        entries[start:end],
		PaginationMeta: meta,
	})
}

// recordSupervisorEvent is the supervisor's audit callback: forced locks
// and logouts join the audit log and the anomaly metrics.
func (a *API) recordSupervisorEvent(event, sessionID, accountID string, reason lifecycle.Reason) {
	var audited AuditEvent
	switch event {
	case session.EventSessionLocked:
		audited = AuditSessionLocked
	case session.EventSessionLoggedOut:
		audited = AuditForcedLogout
	default:
		return
	}
	a.audit.logSystem(audited,
		slog.String("session_id", sessionID),
		slog.String("account_id", accountID),
		slog.String("reason", string(reason)))
	a.auditStore.append(audited, accountID, sessionID, string(reason), "")
}
