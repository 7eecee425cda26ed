package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internquest/sessionguard/credential"
	"github.com/internquest/sessionguard/lifecycle"
)

type auditRecord struct {
	event     string
	sessionID string
	accountID string
	reason    lifecycle.Reason
}

type auditRecorder struct {
	mu      sync.Mutex
	records []auditRecord
}

func (r *auditRecorder) fn(event, sessionID, accountID string, reason lifecycle.Reason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, auditRecord{event, sessionID, accountID, reason})
}

func (r *auditRecorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.event == event {
			n++
		}
	}
	return n
}

func putTestSession(store Store, id string) {
	store.Put(Session{
		ID:             id,
		AccountID:      "acct-1",
		Status:         StatusActive,
		CreatedAt:      time.Now().UTC(),
		ExpiresAt:      time.Now().Add(time.Hour),
		LastActivityAt: time.Now().UTC(),
	})
}

func TestSupervisor_LocksOnInactivity(t *testing.T) {
	store := NewMemoryStore(0)
	secrets := credential.NewCache()
	audit := &auditRecorder{}
	sup := NewSupervisor(store,
		WithLockThresholds(40*time.Millisecond, time.Hour),
		WithLogoutThresholds(time.Hour, time.Hour),
		WithSecretCache(secrets),
		WithAudit(audit.fn),
		WithControllerOptions(lifecycle.WithCooldown(10*time.Millisecond)),
	)
	defer sup.StopAll()

	putTestSession(store, "sess-1")
	secrets.Put("sess-1", []byte("cached material"))
	require.NoError(t, sup.Watch("sess-1"))

	require.Eventually(t, func() bool {
		sess, ok := store.Get("sess-1")
		return ok && sess.Locked()
	}, time.Second, 10*time.Millisecond)

	sess, _ := store.Get("sess-1")
	assert.Equal(t, string(lifecycle.ReasonInactivity), sess.LockReason)
	assert.False(t, sess.LockedAt.IsZero())
	assert.False(t, secrets.Has("sess-1"), "lock must drop the cached secret")
	assert.Equal(t, 1, audit.count(EventSessionLocked))

	// Locking is one-shot: no repeated lock events while locked.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 1, audit.count(EventSessionLocked))
}

func TestSupervisor_UnlockRestartsLockCountdown(t *testing.T) {
	store := NewMemoryStore(0)
	audit := &auditRecorder{}
	sup := NewSupervisor(store,
		WithLockThresholds(40*time.Millisecond, time.Hour),
		WithLogoutThresholds(time.Hour, time.Hour),
		WithAudit(audit.fn),
		WithControllerOptions(lifecycle.WithCooldown(10*time.Millisecond)),
	)
	defer sup.StopAll()

	putTestSession(store, "sess-1")
	require.NoError(t, sup.Watch("sess-1"))

	require.Eventually(t, func() bool {
		sess, ok := store.Get("sess-1")
		return ok && sess.Locked()
	}, time.Second, 10*time.Millisecond)

	require.True(t, sup.Unlock("sess-1"))
	sess, ok := store.Get("sess-1")
	require.True(t, ok)
	assert.False(t, sess.Locked())
	assert.Empty(t, sess.LockReason)

	// The countdown restarted: the session locks again.
	require.Eventually(t, func() bool {
		sess, ok := store.Get("sess-1")
		return ok && sess.Locked()
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, audit.count(EventSessionLocked))
}

func TestSupervisor_LogsOutOnInactivity(t *testing.T) {
	store := NewMemoryStore(0)
	audit := &auditRecorder{}
	sup := NewSupervisor(store,
		WithLockThresholds(time.Hour, time.Hour),
		WithLogoutThresholds(40*time.Millisecond, time.Hour),
		WithAudit(audit.fn),
		WithControllerOptions(lifecycle.WithCooldown(10*time.Millisecond)),
	)
	defer sup.StopAll()

	putTestSession(store, "sess-1")
	require.NoError(t, sup.Watch("sess-1"))

	require.Eventually(t, func() bool {
		_, ok := store.Get("sess-1")
		return !ok
	}, time.Second, 10*time.Millisecond)

	assert.False(t, sup.Watched("sess-1"), "logout must unwatch the session")
	assert.Equal(t, 1, audit.count(EventSessionLoggedOut))
}

func TestSupervisor_BackgroundLock(t *testing.T) {
	store := NewMemoryStore(0)
	audit := &auditRecorder{}
	clock := struct {
		mu  sync.Mutex
		now time.Time
	}{now: time.Unix(1700000000, 0)}
	nowFn := func() time.Time {
		clock.mu.Lock()
		defer clock.mu.Unlock()
		return clock.now
	}
	sup := NewSupervisor(store,
		WithLockThresholds(time.Hour, 10*time.Second),
		WithLogoutThresholds(time.Hour, time.Hour),
		WithAudit(audit.fn),
		WithControllerOptions(
			lifecycle.WithCooldown(10*time.Millisecond),
			lifecycle.WithClock(nowFn),
		),
	)
	defer sup.StopAll()

	putTestSession(store, "sess-1")
	require.NoError(t, sup.Watch("sess-1"))

	require.True(t, sup.SetVisibility("sess-1", lifecycle.VisibilityBackground))
	clock.mu.Lock()
	clock.now = clock.now.Add(30 * time.Second)
	clock.mu.Unlock()
	require.True(t, sup.SetVisibility("sess-1", lifecycle.VisibilityActive))

	require.Eventually(t, func() bool {
		sess, ok := store.Get("sess-1")
		return ok && sess.Locked()
	}, time.Second, 10*time.Millisecond)

	sess, _ := store.Get("sess-1")
	assert.Equal(t, string(lifecycle.ReasonBackground), sess.LockReason)
}

func TestSupervisor_HeartbeatDefersLock(t *testing.T) {
	store := NewMemoryStore(0)
	sup := NewSupervisor(store,
		WithLockThresholds(120*time.Millisecond, time.Hour),
		WithLogoutThresholds(time.Hour, time.Hour),
		WithControllerOptions(lifecycle.WithCooldown(10*time.Millisecond)),
	)
	defer sup.StopAll()

	putTestSession(store, "sess-1")
	require.NoError(t, sup.Watch("sess-1"))

	// Heartbeats at half the threshold keep the session unlocked.
	for i := 0; i < 4; i++ {
		time.Sleep(60 * time.Millisecond)
		require.True(t, sup.RegisterActivity("sess-1"))
	}
	sess, ok := store.Get("sess-1")
	require.True(t, ok)
	assert.False(t, sess.Locked())

	// Once heartbeats stop, the lock lands.
	require.Eventually(t, func() bool {
		sess, ok := store.Get("sess-1")
		return ok && sess.Locked()
	}, time.Second, 10*time.Millisecond)
}

func TestSupervisor_HeartbeatTouchesStore(t *testing.T) {
	store := NewMemoryStore(0)
	sup := NewSupervisor(store,
		WithLockThresholds(time.Hour, time.Hour),
		WithLogoutThresholds(time.Hour, time.Hour),
	)
	defer sup.StopAll()

	store.Put(Session{
		ID:             "sess-1",
		Status:         StatusActive,
		ExpiresAt:      time.Now().Add(time.Hour),
		LastActivityAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, sup.Watch("sess-1"))

	before, _ := store.Get("sess-1")
	require.True(t, sup.RegisterActivity("sess-1"))
	after, _ := store.Get("sess-1")
	assert.True(t, after.LastActivityAt.After(before.LastActivityAt))
}

// gatedStore delays heartbeat writes until the gate opens, forcing the
// slow-heartbeat-versus-lock interleaving.
type gatedStore struct {
	*MemoryStore
	gate chan struct{}
}

func (g *gatedStore) Touch(id string) bool {
	<-g.gate
	return g.MemoryStore.Touch(id)
}

func TestSupervisor_SlowHeartbeatCannotUndoLock(t *testing.T) {
	store := &gatedStore{MemoryStore: NewMemoryStore(0), gate: make(chan struct{})}
	secrets := credential.NewCache()
	audit := &auditRecorder{}
	sup := NewSupervisor(store,
		WithLockThresholds(40*time.Millisecond, time.Hour),
		WithLogoutThresholds(time.Hour, time.Hour),
		WithSecretCache(secrets),
		WithAudit(audit.fn),
		WithControllerOptions(lifecycle.WithCooldown(10*time.Millisecond)),
	)
	defer sup.StopAll()

	putTestSession(store, "sess-1")
	secrets.Put("sess-1", []byte("cached material"))
	require.NoError(t, sup.Watch("sess-1"))

	// The heartbeat stalls in the store write while the lock countdown
	// runs out behind it.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sup.RegisterActivity("sess-1")
	}()

	require.Eventually(t, func() bool {
		sess, ok := store.Get("sess-1")
		return ok && sess.Locked()
	}, time.Second, 10*time.Millisecond)

	// Release the stalled heartbeat; its write must not revive the
	// session.
	close(store.gate)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stalled heartbeat never completed")
	}

	sess, ok := store.Get("sess-1")
	require.True(t, ok)
	assert.True(t, sess.Locked(), "late heartbeat must not overwrite the lock")
	assert.Equal(t, string(lifecycle.ReasonInactivity), sess.LockReason)
	assert.False(t, secrets.Has("sess-1"), "secret stays dropped after the late heartbeat")
	assert.Equal(t, 1, audit.count(EventSessionLocked))
	assert.Equal(t, 0, audit.count(EventSessionLoggedOut))
}

func TestSupervisor_UnknownSessionNoops(t *testing.T) {
	sup := NewSupervisor(NewMemoryStore(0))
	defer sup.StopAll()

	assert.False(t, sup.RegisterActivity("ghost"))
	assert.False(t, sup.SetVisibility("ghost", lifecycle.VisibilityBackground))
	assert.False(t, sup.Unlock("ghost"))
	sup.Unwatch("ghost")
}

func TestSupervisor_UnwatchStopsTracking(t *testing.T) {
	store := NewMemoryStore(0)
	sup := NewSupervisor(store,
		WithLockThresholds(40*time.Millisecond, time.Hour),
		WithLogoutThresholds(time.Hour, time.Hour),
		WithControllerOptions(lifecycle.WithCooldown(10*time.Millisecond)),
	)
	defer sup.StopAll()

	putTestSession(store, "sess-1")
	require.NoError(t, sup.Watch("sess-1"))
	sup.Unwatch("sess-1")

	time.Sleep(120 * time.Millisecond)
	sess, ok := store.Get("sess-1")
	require.True(t, ok)
	assert.False(t, sess.Locked(), "unwatched session must not be locked")
}
