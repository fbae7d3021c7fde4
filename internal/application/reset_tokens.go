package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oksasatya/go-ecommerce-auth/internal/domain/entity"
	repo "github.com/oksasatya/go-ecommerce-auth/internal/domain/repository"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
)

// ErrInvalidOrExpiredToken covers unknown, consumed and expired reset secrets alike.
var ErrInvalidOrExpiredToken = errors.New("reset token invalid or expired")

// ResetTokenManager issues one-time password-reset secrets. Only the SHA-256
// digest is persisted; the plaintext secret leaves the process exactly once.
type ResetTokenManager struct {
	Repo repo.UserRepository
	TTL  time.Duration
	now  func() time.Time
}

func NewResetTokenManager(r repo.UserRepository, ttl time.Duration) *ResetTokenManager {
	return &ResetTokenManager{Repo: r, TTL: ttl, now: time.Now}
}

// Hash is the digest stored for secret.
func (m *ResetTokenManager) Hash(secret string) string {
	return helpers.HashToken(secret)
}

// Issue replaces any pending reset for u with a fresh secret.
func (m *ResetTokenManager) Issue(ctx context.Context, u *entity.User) (string, time.Time, error) {
	secret, err := helpers.GenerateSecret(helpers.ResetTokenBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate reset secret: %w", err)
	}
	expiresAt := m.now().Add(m.TTL)
	if err := m.Repo.SetResetToken(ctx, u.ID, m.Hash(secret), expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("store reset token: %w", err)
	}
	u.SetResetToken(m.Hash(secret), expiresAt)
	return secret, expiresAt, nil
}

// Consume resolves secret to its user when the request is still pending.
// It does not clear the token; the caller does that atomically with the
// password write through ConsumeResetToken.
func (m *ResetTokenManager) Consume(ctx context.Context, secret string) (*entity.User, error) {
	if secret == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	u, err := m.Repo.GetByResetTokenHash(ctx, m.Hash(secret), m.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, fmt.Errorf("lookup reset token: %w", err)
	}
	return u, nil
}
