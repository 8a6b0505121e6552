package session

import (
	"context"
	"time"
)

// Row mirrors a persisted refresh-token record. The plain refresh token is
// never stored; TokenHash is its storage digest.
type Row struct {
	TokenHash string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// Active reports whether the record may still authorize a rotation at the
// given time.
func (r Row) Active(now time.Time) bool {
	return !r.Revoked && r.ExpiresAt.After(now)
}

// Store abstracts persistence for refresh-token records.
//
// The record is keyed by token hash; uniqueness on that key guarantees no two
// Create calls ever collide on a token string. Revoke is the rotation-safety
// primitive: it must be a compare-and-swap on the revoked flag, flipping it
// only when previously clear and reporting whether this call won. Of two
// concurrent rotations racing on one token, exactly one observes won=true.
type Store interface {
	// Create persists a new active record.
	Create(ctx context.Context, tokenHash, userID string, now, expiresAt time.Time) error

	// GetByTokenHash loads a record. Returns ErrRecordNotFound when absent.
	GetByTokenHash(ctx context.Context, tokenHash string) (Row, error)

	// Revoke flips the revoked flag if it was clear. won=false means the
	// record was absent or already revoked; the flag is monotonic and is
	// never cleared again.
	Revoke(ctx context.Context, tokenHash string, now time.Time) (won bool, err error)

	// RevokeAllForUser revokes every record owned by userID (idempotent).
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) error

	// PurgeExpired deletes records whose expiry has passed, revoked or not,
	// and reports how many were removed. Purging has no authorization effect;
	// an expired record already fails verification on expiry grounds.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
