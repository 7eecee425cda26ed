package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/internquest/sessionguard/credential"
	"github.com/internquest/sessionguard/lifecycle"
)

// Default supervisor thresholds. Locking is deliberately much more
// aggressive than logging out: a brief absence should only cost a
// re-authentication, while a long one ends the session.
const (
	DefaultLockInactivity   = 2 * time.Minute
	DefaultLockBackground   = 30 * time.Second
	DefaultLogoutInactivity = 30 * time.Minute
	DefaultLogoutBackground = 10 * time.Minute
	DefaultSessionTTL       = 24 * time.Hour
)

// Event names emitted through the supervisor's audit callback.
const (
	EventSessionLocked    = "session_locked"
	EventSessionLoggedOut = "session_logged_out"
)

// AuditFunc receives supervisor-initiated lock/logout events.
type AuditFunc func(event, sessionID, accountID string, reason lifecycle.Reason)

// Supervisor applies lifecycle policy to live sessions. Each watched
// session gets two controllers: a short-threshold one that locks the
// session, and a long-threshold one that logs it out. Heartbeats and
// visibility reports from the client fan into both.
type Supervisor struct {
	store   Store
	secrets *credential.Cache
	log     *slog.Logger
	audit   AuditFunc

	lockCfg   thresholds
	logoutCfg thresholds
	ctrlOpts  []lifecycle.Option

	mu       sync.Mutex
	watchers map[string]*watcher
}

type thresholds struct {
	inactivity time.Duration
	background time.Duration
}

// watcher is the pair of controllers guarding one session.
type watcher struct {
	lock   *lifecycle.Controller
	logout *lifecycle.Controller
}

func (w *watcher) stop() {
	w.lock.Stop()
	w.logout.Stop()
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithSupervisorLogger sets the structured logger.
func WithSupervisorLogger(log *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.log = log
	}
}

// WithAudit sets the callback invoked for supervisor-initiated lock and
// logout events.
func WithAudit(fn AuditFunc) SupervisorOption {
	return func(s *Supervisor) {
		s.audit = fn
	}
}

// WithSecretCache attaches a credential cache whose per-session secrets are
// dropped on lock and logout.
func WithSecretCache(cache *credential.Cache) SupervisorOption {
	return func(s *Supervisor) {
		s.secrets = cache
	}
}

// WithLockThresholds overrides the inactivity/background thresholds of the
// lock controller.
func WithLockThresholds(inactivity, background time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.lockCfg = thresholds{inactivity: inactivity, background: background}
	}
}

// WithLogoutThresholds overrides the inactivity/background thresholds of
// the logout controller.
func WithLogoutThresholds(inactivity, background time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.logoutCfg = thresholds{inactivity: inactivity, background: background}
	}
}

// WithControllerOptions passes extra options to every controller the
// supervisor creates. Intended for tests.
func WithControllerOptions(opts ...lifecycle.Option) SupervisorOption {
	return func(s *Supervisor) {
		s.ctrlOpts = opts
	}
}

// NewSupervisor creates a Supervisor over the given session store.
func NewSupervisor(store Store, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		store:     store,
		lockCfg:   thresholds{inactivity: DefaultLockInactivity, background: DefaultLockBackground},
		logoutCfg: thresholds{inactivity: DefaultLogoutInactivity, background: DefaultLogoutBackground},
		watchers:  make(map[string]*watcher),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "supervisor")
	return s
}

// Watch begins lifecycle tracking for a session. Watching an
// already-watched session restarts both countdowns.
func (s *Supervisor) Watch(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.watchers[sessionID]; ok {
		w.lock.Start()
		w.logout.Start()
		return nil
	}

	lockCtrl, err := lifecycle.New(lifecycle.Config{
		InactivityThreshold: s.lockCfg.inactivity,
		BackgroundThreshold: s.lockCfg.background,
		OnTrigger: func(_ context.Context, reason lifecycle.Reason) error {
			s.lockSession(sessionID, reason)
			return nil
		},
	}, s.ctrlOpts...)
	if err != nil {
		return err
	}
	logoutCtrl, err := lifecycle.New(lifecycle.Config{
		InactivityThreshold: s.logoutCfg.inactivity,
		BackgroundThreshold: s.logoutCfg.background,
		OnTrigger: func(_ context.Context, reason lifecycle.Reason) error {
			s.logoutSession(sessionID, reason)
			return nil
		},
	}, s.ctrlOpts...)
	if err != nil {
		return err
	}

	w := &watcher{lock: lockCtrl, logout: logoutCtrl}
	s.watchers[sessionID] = w
	w.lock.Start()
	w.logout.Start()
	return nil
}

// Unwatch stops tracking a session. Safe to call for unknown IDs.
func (s *Supervisor) Unwatch(sessionID string) {
	s.mu.Lock()
	w, ok := s.watchers[sessionID]
	if ok {
		delete(s.watchers, sessionID)
	}
	s.mu.Unlock()
	if ok {
		w.stop()
	}
}

// Watched reports whether a session is currently tracked.
func (s *Supervisor) Watched(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watchers[sessionID]
	return ok
}

// StopAll stops every watcher. Used at server shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	watchers := s.watchers
	s.watchers = make(map[string]*watcher)
	s.mu.Unlock()
	for _, w := range watchers {
		w.stop()
	}
}

// RegisterActivity records a client heartbeat: the session's last-activity
// timestamp is persisted and both countdowns restart. Returns false for
// sessions that are not watched.
func (s *Supervisor) RegisterActivity(sessionID string) bool {
	s.mu.Lock()
	w, ok := s.watchers[sessionID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	s.store.Touch(sessionID)
	w.lock.RegisterActivity()
	w.logout.RegisterActivity()
	return true
}

// SetVisibility reports the client app's visibility change to both
// controllers. Returns false for sessions that are not watched.
func (s *Supervisor) SetVisibility(sessionID string, v lifecycle.Visibility) bool {
	s.mu.Lock()
	w, ok := s.watchers[sessionID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	w.lock.SetVisibility(v)
	w.logout.SetVisibility(v)
	return true
}

// Unlock marks a locked session active again and restarts its lock
// countdown. The caller must have re-verified the account passphrase.
func (s *Supervisor) Unlock(sessionID string) bool {
	if _, ok := s.store.Unlock(sessionID); !ok {
		return false
	}

	s.mu.Lock()
	w, ok := s.watchers[sessionID]
	s.mu.Unlock()
	if ok {
		w.lock.Start()
		w.logout.RegisterActivity()
	}
	return true
}

// lockSession is the lock controller's trigger: mark the session locked,
// drop its cached secret, and suspend the lock countdown until Unlock. The
// store transition is atomic, so a concurrent heartbeat cannot write back a
// stale active copy over the lock.
func (s *Supervisor) lockSession(sessionID string, reason lifecycle.Reason) {
	sess, locked := s.store.Lock(sessionID, string(reason))
	if !locked {
		if _, ok := s.store.Get(sessionID); !ok {
			// Session already gone (expired or logged out elsewhere).
			s.Unwatch(sessionID)
		}
		return
	}

	if s.secrets != nil {
		s.secrets.Drop(sessionID)
	}

	s.mu.Lock()
	w, ok := s.watchers[sessionID]
	s.mu.Unlock()
	if ok {
		// The logout countdown keeps running: a locked session that
		// stays idle is eventually logged out.
		w.lock.Stop()
	}

	s.log.Info("session locked", "session_id", sessionID, "reason", string(reason))
	if s.audit != nil {
		s.audit(EventSessionLocked, sessionID, sess.AccountID, reason)
	}
}

// logoutSession is the logout controller's trigger: end the session
// entirely.
func (s *Supervisor) logoutSession(sessionID string, reason lifecycle.Reason) {
	accountID := ""
	if sess, ok := s.store.Get(sessionID); ok {
		accountID = sess.AccountID
	}
	s.store.Delete(sessionID)
	if s.secrets != nil {
		s.secrets.Drop(sessionID)
	}
	s.Unwatch(sessionID)

	s.log.Info("session logged out", "session_id", sessionID, "reason", string(reason))
	if s.audit != nil {
		s.audit(EventSessionLoggedOut, sessionID, accountID, reason)
	}
}
