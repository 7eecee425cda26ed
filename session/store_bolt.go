package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/internquest/sessionguard/storage"
)

const cleanupInterval = 5 * time.Minute

// BoltStore persists sessions in a storage.Repository so they survive
// server restarts. A background goroutine sweeps expired records.
type BoltStore struct {
	repo        storage.Repository
	idleTimeout time.Duration
	stopOnce    sync.Once
	stopCh      chan struct{}

	// mu serializes Touch/Lock/Unlock, whose read-modify-write spans two
	// repository calls.
	mu sync.Mutex
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore creates a session store backed by the given repository.
// idleTimeout of 0 disables idle timeout checking.
func NewBoltStore(repo storage.Repository, idleTimeout time.Duration) *BoltStore {
	s := &BoltStore{
		repo:        repo,
		idleTimeout: idleTimeout,
		stopCh:      make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Close stops the background cleanup goroutine.
func (s *BoltStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *BoltStore) Get(id string) (Session, bool) {
	data, err := s.repo.Get(storage.RecordTypeSession, id)
	if err != nil {
		return Session{}, false
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
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

func (s *BoltStore) Put(sess Session) {
	data, err := json.Marshal(sess)
	if err != nil {
		return
	}
	_ = s.repo.Put(storage.RecordTypeSession, sess.ID, data)
}

func (s *BoltStore) Delete(id string) {
	_ = s.repo.Delete(storage.RecordTypeSession, id)
}

func (s *BoltStore) Touch(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.Get(id)
	if !ok {
		return false
	}
	sess.LastActivityAt = time.Now().UTC()
	s.Put(sess)
	return true
}

func (s *BoltStore) Lock(id, reason string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.Get(id)
	if !ok || sess.Locked() {
		return Session{}, false
	}
	sess.Status = StatusLocked
	sess.LockedAt = time.Now().UTC()
	sess.LockReason = reason
	s.Put(sess)
	return sess, true
}

func (s *BoltStore) Unlock(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.Get(id)
	if !ok {
		return Session{}, false
	}
	sess.Status = StatusActive
	sess.LockedAt = time.Time{}
	sess.LockReason = ""
	sess.LastActivityAt = time.Now().UTC()
	s.Put(sess)
	return sess, true
}

func (s *BoltStore) List() []Session {
	ids, err := s.repo.List(storage.RecordTypeSession)
	if err != nil {
		return nil
	}
	sessions := make([]Session, 0, len(ids))
	for _, id := range ids {
		data, err := s.repo.Get(storage.RecordTypeSession, id)
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions
}

func (s *BoltStore) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep deletes sessions past their absolute expiry. Idle timeouts are
// enforced lazily on Get; the sweep keeps abandoned records from
// accumulating.
func (s *BoltStore) sweep() {
	now := time.Now()
	for _, sess := range s.List() {
		if now.After(sess.ExpiresAt) {
			s.Delete(sess.ID)
		}
	}
}
