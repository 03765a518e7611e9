package client

import (
	"sync"
	"time"
)

// TokenStore persists the session token between calls.
type TokenStore interface {
	Load() (string, bool)
	Save(token string, expiresAt time.Time)
	Clear()
}

// MemoryTokenStore keeps the token in memory until it expires.
type MemoryTokenStore struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewMemoryTokenStore returns an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{now: time.Now}
}

// Load returns the token unless it is missing or expired.
func (m *MemoryTokenStore) Load() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", false
	}
	if !m.expiresAt.IsZero() && !m.now().Before(m.expiresAt) {
		m.token = ""
		return "", false
	}
	return m.token, true
}

// Save replaces the stored token. A zero expiresAt never expires.
func (m *MemoryTokenStore) Save(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.expiresAt = expiresAt
}

// Clear forgets the token.
func (m *MemoryTokenStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiresAt = time.Time{}
}
