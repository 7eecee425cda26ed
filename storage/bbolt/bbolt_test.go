package bbolt

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/internquest/sessionguard/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewRepositoryFromFile(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGetDelete(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put(storage.RecordTypeSession, "s1", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := s.Get(storage.RecordTypeSession, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("got %q", data)
	}

	if err := s.Delete(storage.RecordTypeSession, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(storage.RecordTypeSession, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestStore_MissingBucket(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get(storage.RecordTypeAudit, "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get: want ErrNotFound, got %v", err)
	}
	if err := s.Delete(storage.RecordTypeAudit, "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Delete: want ErrNotFound, got %v", err)
	}
	ids, err := s.List(storage.RecordTypeAudit)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("want empty list, got %v", ids)
	}
}

func TestStore_ListScopedByType(t *testing.T) {
	s := newTestStore(t)
	_ = s.Put(storage.RecordTypeSession, "s1", []byte("x"))
	_ = s.Put(storage.RecordTypeSession, "s2", []byte("x"))
	_ = s.Put(storage.RecordTypeAccount, "a1", []byte("x"))

	ids, err := s.List(storage.RecordTypeSession)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("want 2 session records, got %v", ids)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := NewRepositoryFromFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(storage.RecordTypeAccount, "a1", []byte("kept")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := NewRepositoryFromFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	data, err := s2.Get(storage.RecordTypeAccount, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "kept" {
		t.Fatalf("got %q", data)
	}
}
