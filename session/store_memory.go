package session

import (
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store. Sessions are lost on
// server restart.
type MemoryStore struct {
	mu          sync.RWMutex
	data        map[string]Session
	idleTimeout time.Duration
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory session store. idleTimeout of 0
// disables idle timeout checking; when set it acts as a server-side
// backstop behind the supervisor's own inactivity tracking.
func NewMemoryStore(idleTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		data:        make(map[string]Session),
		idleTimeout: idleTimeout,
	}
}

func (s *MemoryStore) Get(id string) (Session, bool) {
	s.mu.RLock()
	sess, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if time.Now().After(sess.ExpiresAt) {
		s.Delete(id)
		return Session{}, false
	}
	if s.idleTimeout > 0 && time.Since(sess.LastActivityAt) > s.idleTimeout {
		s.Delete(id)
		return Session{}, false
	}
	return sess, true
}

func (s *MemoryStore) Put(sess Session) {
	s.mu.Lock()
	s.data[sess.ID] = sess
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
}

func (s *MemoryStore) Touch(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[id]
	if !ok {
		return false
	}
	sess.LastActivityAt = time.Now().UTC()
	s.data[id] = sess
	return true
}

func (s *MemoryStore) Lock(id, reason string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[id]
	if !ok || sess.Locked() {
		return Session{}, false
	}
	sess.Status = StatusLocked
	sess.LockedAt = time.Now().UTC()
	sess.LockReason = reason
	s.data[id] = sess
	return sess, true
}

func (s *MemoryStore) Unlock(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[id]
	if !ok {
		return Session{}, false
	}
	sess.Status = StatusActive
	sess.LockedAt = time.Time{}
	sess.LockReason = ""
	sess.LastActivityAt = time.Now().UTC()
	s.data[id] = sess
	return sess, true
}

func (s *MemoryStore) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]Session, 0, len(s.data))
	for _, sess := range s.data {
		sessions = append(sessions, sess)
	}
	return sessions
}
