package util

import (
	"sync"
	"time"
)

// RevocationList remembers signed-out token IDs until they would have expired anyway.
type RevocationList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewRevocationList creates an empty revocation list
func NewRevocationList() *RevocationList {
	return &RevocationList{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke marks a token ID as signed out until expiresAt
func (r *RevocationList) Revoke(tokenID string, expiresAt time.Time) {
	if tokenID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.revoked[tokenID] = expiresAt
	r.cleanupLocked()
}

// IsRevoked checks if a token ID has been signed out
func (r *RevocationList) IsRevoked(tokenID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	expiresAt, exists := r.revoked[tokenID]
	return exists && r.now().Before(expiresAt)
}

// Len returns the number of tracked token IDs
func (r *RevocationList) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked)
}

// cleanupLocked drops entries whose tokens have expired. Caller holds mu.
func (r *RevocationList) cleanupLocked() {
	now := r.now()
	for id, expiresAt := range r.revoked {
		if now.After(expiresAt) {
			delete(r.revoked, id)
		}
	}
}
