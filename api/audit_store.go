package api

import (
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/internquest/sessionguard/internal/uuid"
	"github.com/internquest/sessionguard/storage"
)

// auditTimeFormat is RFC3339 with a fixed-width fraction so that entries
// sort chronologically as strings.
const auditTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// auditEntry is the persisted form of an audit event, queryable over
// GET /audit. Empty fields are omitted: registration has no session,
// supervisor events have no remote address.
type auditEntry struct {
	ID         string `json:"id"`
	Event      string `json:"event"`
	AccountID  string `json:"account_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// auditStore persists audit entries through the record repository.
type auditStore struct {
	repo storage.Repository
}

func newAuditStore(repo storage.Repository) *auditStore {
	return &auditStore{repo: repo}
}

// append writes one audit entry. Persistence failures are logged but never
// fail the request that produced the event.
func (s *auditStore) append(event AuditEvent, accountID, sessionID, reason, remoteAddr string) {
	entry := auditEntry{
		ID:         uuid.New(),
		Event:      string(event),
		AccountID:  accountID,
		SessionID:  sessionID,
		Reason:     reason,
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now().UTC().Format(auditTimeFormat),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		slog.Error("audit store: marshal failed", "error", err)
		return
	}
	if err := s.repo.Put(storage.RecordTypeAudit, entry.ID, data); err != nil {
		slog.Error("audit store: persist failed", "error", err)
	}
}

// list returns all audit entries, newest first.
func (s *auditStore) list() ([]auditEntry, error) {
	ids, err := s.repo.List(storage.RecordTypeAudit)
	if err != nil {
		return nil, err
	}
	entries := make([]auditEntry, 0, len(ids))
	for _, id := range ids {
		data, err := s.repo.Get(storage.RecordTypeAudit, id)
		if err != nil {
			continue
		}
		var entry auditEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt > entries[j].CreatedAt
	})
	return entries, nil
}
