package memory

import (
	"errors"
	"testing"

	"github.com/internquest/sessionguard/storage"
)

func TestRepository_PutGet(t *testing.T) {
	r := NewRepository()
	if err := r.Put(storage.RecordTypeSession, "s1", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := r.Get(storage.RecordTypeSession, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Fatalf("got %q", data)
	}
}

func TestRepository_GetMissing(t *testing.T) {
	r := NewRepository()
	_, err := r.Get(storage.RecordTypeSession, "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRepository_GetReturnsCopy(t *testing.T) {
	r := NewRepository()
	orig := []byte("abc")
	if err := r.Put(storage.RecordTypeAccount, "a1", orig); err != nil {
		t.Fatal(err)
	}
	data, err := r.Get(storage.RecordTypeAccount, "a1")
	if err != nil {
		t.Fatal(err)
	}
	data[0] = 'X'
	again, err := r.Get(storage.RecordTypeAccount, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != "abc" {
		t.Fatalf("stored record mutated: %q", again)
	}
}

func TestRepository_Delete(t *testing.T) {
	r := NewRepository()
	if err := r.Put(storage.RecordTypeSession, "s1", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := r.Delete(storage.RecordTypeSession, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(storage.RecordTypeSession, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
	if err := r.Delete(storage.RecordTypeSession, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete: want ErrNotFound, got %v", err)
	}
}

func TestRepository_ListScopedByType(t *testing.T) {
	r := NewRepository()
	_ = r.Put(storage.RecordTypeSession, "s1", []byte("x"))
	_ = r.Put(storage.RecordTypeSession, "s2", []byte("x"))
	_ = r.Put(storage.RecordTypeAccount, "a1", []byte("x"))

	ids, err := r.List(storage.RecordTypeSession)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("want 2 session records, got %v", ids)
	}
	ids, err = r.List(storage.RecordTypeAudit)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Fatalf("want empty list, got %v", ids)
	}
}
