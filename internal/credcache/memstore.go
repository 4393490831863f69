package credcache

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and by callers that
// do not want on-disk persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Credential
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Credential)}
}

// Load returns the credential for subject if present and still valid.
func (s *MemoryStore) Load(subject string) (*Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.entries[subject]
	if !ok || !cred.Valid(time.Now()) {
		return nil, false
	}
	cp := *cred
	cp.Subject = subject
	return &cp, true
}

// Save stores cred under subject. It always succeeds.
func (s *MemoryStore) Save(subject string, cred *Credential) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cred
	s.entries[subject] = &cp
	return true
}
