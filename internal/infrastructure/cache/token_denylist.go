// Package cache holds Redis-backed auth state that outlives a single request.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
)

const denylistPrefix = "auth:refresh:revoked:"

// TokenDenylist records revoked refresh-token ids until their natural expiry.
// A nil client turns every method into a no-op, so logout degrades to client-side only.
type TokenDenylist struct {
	rdb *redis.Client
	now func() time.Time
}

func NewTokenDenylist(rdb *redis.Client) *TokenDenylist {
	return &TokenDenylist{rdb: rdb, now: time.Now}
}

func denylistKey(jti string) string { return denylistPrefix + jti }

// Revoke stores jti until expiresAt. Already expired tokens are skipped.
func (d *TokenDenylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if d == nil || d.rdb == nil || jti == "" {
		return nil
	}
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	return d.rdb.Set(ctx, denylistKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked. Redis errors are returned so the
// caller decides whether to fail open.
func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if d == nil || d.rdb == nil || jti == "" {
		return false, nil
	}
	return helpers.RedisExists(ctx, d.rdb, denylistKey(jti))
}
