package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internquest/sessionguard/storage/memory"
)

func TestAuditStore_AppendAndList(t *testing.T) {
	s := newAuditStore(memory.NewRepository())

	s.append(AuditLoginSuccess, "alice", "sess-1", "", "127.0.0.1:9999")
	s.append(AuditSessionLocked, "alice", "sess-1", "inactivity", "")

	entries, err := s.list()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	events := make(map[string]bool)
	for _, e := range entries {
		events[e.Event] = true
		assert.NotEmpty(t, e.ID)
		assert.NotEmpty(t, e.CreatedAt)
	}
	assert.True(t, events["login_success"])
	assert.True(t, events["session_locked"])
}

func TestAuditStore_NewestFirst(t *testing.T) {
	s := newAuditStore(memory.NewRepository())

	s.append(AuditRegister, "alice", "", "", "")
	s.append(AuditLoginSuccess, "alice", "sess-1", "", "")
	s.append(AuditLogout, "alice", "sess-1", "", "")

	entries, err := s.list()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "logout", entries[0].Event)
	assert.Equal(t, "register", entries[2].Event)
}

func TestAuditStore_EmptyList(t *testing.T) {
	s := newAuditStore(memory.NewRepository())

	entries, err := s.list()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAuditStore_SupervisorEntryFields(t *testing.T) {
	s := newAuditStore(memory.NewRepository())

	s.append(AuditForcedLogout, "alice", "sess-1", "background", "")

	entries, err := s.list()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "forced_logout", entries[0].Event)
	assert.Equal(t, "background", entries[0].Reason)
	assert.Empty(t, entries[0].RemoteAddr)
}
