// Package credstore provides CredentialStore implementations: a
// durable file-backed slot, an in-memory slot for tests and ephemeral
// processes, and a Redis-backed slot for shared edge deployments.
//
// A store is a storage primitive only. It never inspects the
// credential, and a broken backing medium degrades to "absent" rather
// than failing callers.
package credstore

import (
	"context"
	"sync"

	auth "github.com/Brij5/contentkoshn-sub001"
)

// Memory is an in-memory credential slot.
type Memory struct {
	mu   sync.RWMutex
	cred string
	set  bool
}

// compile-time check
var _ auth.CredentialStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

// Get returns the stored credential, if any.
func (m *Memory) Get(_ context.Context) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred, m.set
}

// Set stores the credential, overwriting any previous one.
func (m *Memory) Set(_ context.Context, credential string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = credential
	m.set = true
	return nil
}

// Clear removes the stored credential.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = ""
	m.set = false
	return nil
}
