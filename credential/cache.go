package credential

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Cache holds per-session unlock secrets sealed in memguard enclaves. A
// lock trigger drops the session's secret so that no decrypted material
// outlives the lock; unlock re-verifies the passphrase and re-seeds it.
type Cache struct {
	mu      sync.Mutex
	secrets map[string]*memguard.Enclave
}

// NewCache returns an empty secret cache.
func NewCache() *Cache {
	return &Cache{secrets: make(map[string]*memguard.Enclave)}
}

// Put seals the secret for a session. The provided buffer is wiped by
// memguard as part of sealing.
func (c *Cache) Put(sessionID string, secret []byte) {
	enclave := memguard.NewEnclave(secret)
	c.mu.Lock()
	c.secrets[sessionID] = enclave
	c.mu.Unlock()
}

// Has reports whether a secret is cached for the session.
func (c *Cache) Has(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.secrets[sessionID]
	return ok
}

// Use opens the session's secret and passes it to fn. The decrypted buffer
// is destroyed when fn returns; fn must not retain it. Returns false if no
// secret is cached.
func (c *Cache) Use(sessionID string, fn func(secret []byte)) bool {
	c.mu.Lock()
	enclave, ok := c.secrets[sessionID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	buf, err := enclave.Open()
	if err != nil {
		return false
	}
	defer buf.Destroy()
	fn(buf.Bytes())
	return true
}

// Drop discards the session's secret.
func (c *Cache) Drop(sessionID string) {
	c.mu.Lock()
	delete(c.secrets, sessionID)
	c.mu.Unlock()
}

// DropAll discards every cached secret.
func (c *Cache) DropAll() {
	c.mu.Lock()
	c.secrets = make(map[string]*memguard.Enclave)
	c.mu.Unlock()
}
