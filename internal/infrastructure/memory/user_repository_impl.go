// Package memory is a process-local credential store for tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ecommerce-auth/internal/domain/entity"
	"github.com/oksasatya/go-ecommerce-auth/internal/domain/repository"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
	now     func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := entity.NormalizeEmail(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return repository.ErrEmailTaken
	}
	now := r.now()
	u.ID = uuid.NewString()
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Addresses == nil {
		u.Addresses = []entity.Address{}
	}
	assignAddressIDs(u.Addresses)
	r.byID[u.ID] = u.Clone()
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string, sel ...repository.Select) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return project(u, sel), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string, sel ...repository.Select) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[entity.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return project(r.byID[id], sel), nil
}

func (r *UserRepository) GetByResetTokenHash(_ context.Context, hash string, now time.Time) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.ResetPasswordTokenHash != nil && *u.ResetPasswordTokenHash == hash && u.HasPendingReset(now) {
			return project(u, []repository.Select{repository.SelectResetToken}), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	email := entity.NormalizeEmail(u.Email)
	if owner, taken := r.byEmail[email]; taken && owner != u.ID {
		return repository.ErrEmailTaken
	}

	assignAddressIDs(u.Addresses)
	next := u.Clone()
	next.Email = email
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = r.now()
	// credentials only change through the dedicated methods
	next.PasswordHash = cur.PasswordHash
	next.PasswordChangedAt = cur.PasswordChangedAt
	next.ResetPasswordTokenHash = cur.ResetPasswordTokenHash
	next.ResetPasswordExpiresAt = cur.ResetPasswordExpiresAt
	next.LastLoginAt = cur.LastLoginAt

	if cur.Email != email {
		delete(r.byEmail, cur.Email)
		r.byEmail[email] = u.ID
	}
	r.byID[u.ID] = next
	u.Email = email
	u.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *UserRepository) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLoginAt = &at
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, hash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ReplacePassword(hash, changedAt)
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) SetResetToken(_ context.Context, id, hash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.SetResetToken(hash, expiresAt)
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) ConsumeResetToken(_ context.Context, id, tokenHash, newHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if u.ResetPasswordTokenHash == nil || *u.ResetPasswordTokenHash != tokenHash {
		return repository.ErrResetTokenMismatch
	}
	u.ReplacePassword(newHash, changedAt)
	u.UpdatedAt = r.now()
	return nil
}

func assignAddressIDs(addrs []entity.Address) {
	for i := range addrs {
		if addrs[i].ID == "" {
			addrs[i].ID = uuid.NewString()
		}
	}
}

func project(u *entity.User, sel []repository.Select) *entity.User {
	mask := repository.Merge(sel)
	out := u.Clone()
	out.RedactSecrets(mask.Has(repository.SelectPassword), mask.Has(repository.SelectResetToken))
	return out
}

var _ repository.UserRepository = (*UserRepository)(nil)
