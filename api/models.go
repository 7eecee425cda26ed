package api

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisterRequest is the JSON body for POST /auth/register.
type RegisterRequest struct {
	AccountID  string `json:"account_id"`
	Passphrase string `json:"passphrase"`
}

// RegisterResponse is returned from POST /auth/register.
type RegisterResponse struct {
	AccountID string `json:"account_id"`
	CreatedAt string `json:"created_at"`
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	AccountID  string `json:"account_id"`
	Passphrase string `json:"passphrase"`
}

// LoginResponse is returned from POST /auth/login.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// UnlockRequest is the JSON body for POST /auth/unlock.
type UnlockRequest struct {
	Passphrase string `json:"passphrase"`
}

// StatusResponse is returned from GET /session/status. SecretID is a
// fingerprint of the session's cached unlock secret; it is absent while
// the session is locked and changes on every unlock.
type StatusResponse struct {
	AccountID      string `json:"account_id"`
	Status         string `json:"status"`
	LockReason     string `json:"lock_reason,omitempty"`
	LockedAt       string `json:"locked_at,omitempty"`
	LastActivityAt string `json:"last_activity_at"`
	ExpiresAt      string `json:"expires_at"`
	SecretID       string `json:"secret_id,omitempty"`
}

// VisibilityRequest is the JSON body for POST /session/visibility.
type VisibilityRequest struct {
	State string `json:"state"`
}

// SessionSummary describes one live session in GET /sessions.
type SessionSummary struct {
	ID             string `json:"id"`
	AccountID      string `json:"account_id"`
	Status         string `json:"status"`
	LastActivityAt string `json:"last_activity_at"`
	ExpiresAt      string `json:"expires_at"`
}

// ListSessionsResponse is returned from GET /sessions.
type ListSessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// ListAuditResponse is returned from GET /audit.
type ListAuditResponse struct {
	Entries []auditEntry `json:"entries"`
	PaginationMeta
}
