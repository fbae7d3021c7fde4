package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/go-ecommerce-auth/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when a write would duplicate an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrResetTokenMismatch is returned when a reset token was cleared or replaced
	// between lookup and consumption.
	ErrResetTokenMismatch = errors.New("reset token no longer matches")
)

// Select opts into credential fields that lookups hide by default.
type Select uint8

const (
	SelectPassword Select = 1 << iota
	SelectResetToken
)

// Has reports whether flag is part of s.
func (s Select) Has(flag Select) bool { return s&flag != 0 }

// Merge folds a variadic selection into a single mask.
func Merge(sel []Select) Select {
	var out Select
	for _, s := range sel {
		out |= s
	}
	return out
}

// UserRepository is the credential store. Emails are matched case-insensitively;
// implementations normalize them before every read and write.
type UserRepository interface {
	// Create inserts u and fills ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string, sel ...Select) (*entity.User, error)
	GetByEmail(ctx context.Context, email string, sel ...Select) (*entity.User, error)
	// GetByResetTokenHash matches the stored digest and requires an expiry after now.
	// The returned user always carries its reset fields.
	GetByResetTokenHash(ctx context.Context, hash string, now time.Time) (*entity.User, error)
	// Update persists profile and state fields. It never touches credentials.
	// Addresses without a store-issued ID get one, written back into u.
	Update(ctx context.Context, u *entity.User) error
	// TouchLastLogin writes only the last-login timestamp, leaving concurrent
	// profile or state changes intact.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	// UpdatePassword replaces the hash and clears any pending reset.
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error
	// SetResetToken stores a reset digest, overwriting any previous one.
	SetResetToken(ctx context.Context, id, hash string, expiresAt time.Time) error
	// ConsumeResetToken replaces the password only if the stored digest still equals
	// tokenHash, clearing the reset fields in the same write.
	ConsumeResetToken(ctx context.Context, id, tokenHash, newHash string, changedAt time.Time) error
}
