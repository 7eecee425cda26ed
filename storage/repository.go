// Package storage provides the record storage abstraction used by the
// session, account, and audit stores.
package storage

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Record types used across the repository. Implementations treat the type
// as an opaque namespace.
const (
	RecordTypeSession = "SESSION"
	RecordTypeAccount = "ACCOUNT"
	RecordTypeAudit   = "AUDIT"
)

// Repository defines the interface for record storage. Records are opaque
// byte payloads (JSON by convention) keyed by record type and ID.
type Repository interface {
	Put(recordType, recordID string, data []byte) error
	Get(recordType, recordID string) ([]byte, error)
	Delete(recordType, recordID string) error
	List(recordType string) ([]string, error)
}
