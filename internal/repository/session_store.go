package repository

import (
	"context"
	"time"
)

// SessionStore tracks revoked dashboard sessions by token id until they
// would have expired anyway.
// Implementations: Redis (production) or in-memory (local dev / single instance).
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const revokedKeyPrefix = "rsvphub:revoked:"
