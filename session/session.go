// Package session holds server-side session state and the supervisor that
// applies inactivity and backgrounding policy to live sessions.
package session

import "time"

// Status is a session's lock state.
type Status string

const (
	// StatusActive means the session may perform authenticated calls.
	StatusActive Status = "active"
	// StatusLocked means the session exists but requires passphrase
	// re-authentication before it may proceed.
	StatusLocked Status = "locked"
)

// Session holds the server-side state for an authenticated session. The ID
// doubles as the bearer token.
type Session struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	Status         Status    `json:"status"`
	LockedAt       time.Time `json:"locked_at,omitempty"`
	LockReason     string    `json:"lock_reason,omitempty"`
}

// Locked reports whether the session requires re-authentication.
func (s Session) Locked() bool {
	return s.Status == StatusLocked
}

// Store abstracts session CRUD so that sessions can be stored in-memory
// (default) or in persistent backing storage. Touch, Lock, and Unlock are
// atomic: a heartbeat racing a lock must never overwrite the locked state
// with a stale active copy.
type Store interface {
	// Get retrieves a session by ID. Returns false if the session does
	// not exist, has passed its absolute expiry, or has exceeded the
	// store's idle timeout.
	Get(id string) (Session, bool)
	// Put creates or updates a session.
	Put(s Session)
	// Delete removes a session by ID.
	Delete(id string)
	// List returns all live sessions.
	List() []Session
	// Touch updates the session's last-activity timestamp, leaving every
	// other field untouched. Returns false if the session does not exist.
	Touch(id string) bool
	// Lock marks an active session locked with the given reason. Returns
	// the locked session and true only when this call performed the
	// transition; false if the session is missing or already locked.
	Lock(id, reason string) (Session, bool)
	// Unlock marks the session active again, clearing the lock fields and
	// refreshing last activity. Returns false if the session is missing.
	Unlock(id string) (Session, bool)
}
