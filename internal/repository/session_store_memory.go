package repository

import (
	"context"
	"sync"
	"time"
)

type memorySessionStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *memorySessionStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[revokedKeyPrefix+tokenID] = s.now().Add(ttl)
	s.sweepLocked()
	return nil
}

func (s *memorySessionStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := revokedKeyPrefix + tokenID
	expiresAt, ok := s.revoked[key]
	if !ok {
		return false, nil
	}
	if s.now().After(expiresAt) {
		delete(s.revoked, key)
		return false, nil
	}
	return true, nil
}

// sweepLocked drops expired entries. Caller holds mu.
func (s *memorySessionStore) sweepLocked() {
	now := s.now()
	for k, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, k)
		}
	}
}
