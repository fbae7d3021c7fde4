package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ecommerce-auth/internal/domain/entity"
	"github.com/oksasatya/go-ecommerce-auth/internal/domain/repository"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const baseColumns = `id, name, email, role, avatar, addresses, is_active, email_verified,
		last_login_at, password_changed_at, created_at, updated_at`

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// addressRecord is the JSONB shape of one entry in users.addresses.
type addressRecord struct {
	ID        string `json:"id"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	IsDefault bool   `json:"isDefault"`
}

// assignAddressIDs gives new addresses an ID in place, so the caller holds
// exactly what was stored.
func assignAddressIDs(addrs []entity.Address) {
	for i := range addrs {
		if addrs[i].ID == "" {
			addrs[i].ID = uuid.NewString()
		}
	}
}

func encodeAddresses(in []entity.Address) ([]byte, error) {
	out := make([]addressRecord, 0, len(in))
	for _, a := range in {
		out = append(out, addressRecord(a))
	}
	return json.Marshal(out)
}

func decodeAddresses(raw []byte) ([]entity.Address, error) {
	out := []entity.Address{}
	if len(raw) == 0 {
		return out, nil
	}
	var recs []addressRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, err
	}
	for _, r := range recs {
		out = append(out, entity.Address(r))
	}
	return out, nil
}

func selectColumns(mask repository.Select) string {
	cols := baseColumns
	if mask.Has(repository.SelectPassword) {
		cols += ", password_hash"
	}
	if mask.Has(repository.SelectResetToken) {
		cols += ", reset_password_token_hash, reset_password_expires_at"
	}
	return cols
}

func scanUser(row pgx.Row, mask repository.Select) (*entity.User, error) {
	u := &entity.User{}
	var (
		role      string
		addresses []byte
	)
	dest := []any{
		&u.ID, &u.Name, &u.Email, &role, &u.Avatar, &addresses, &u.IsActive, &u.EmailVerified,
		&u.LastLoginAt, &u.PasswordChangedAt, &u.CreatedAt, &u.UpdatedAt,
	}
	if mask.Has(repository.SelectPassword) {
		dest = append(dest, &u.PasswordHash)
	}
	if mask.Has(repository.SelectResetToken) {
		dest = append(dest, &u.ResetPasswordTokenHash, &u.ResetPasswordExpiresAt)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.Role = entity.Role(role)
	addrs, err := decodeAddresses(addresses)
	if err != nil {
		return nil, err
	}
	u.Addresses = addrs
	return u, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return repository.ErrEmailTaken
	}
	return err
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	u.Email = entity.NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = entity.RoleUser
	}
	assignAddressIDs(u.Addresses)
	addrs, err := encodeAddresses(u.Addresses)
	if err != nil {
		return err
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role, avatar, addresses, is_active, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Avatar, addrs, u.IsActive, u.EmailVerified)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	if u.Addresses == nil {
		u.Addresses = []entity.Address{}
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string, sel ...repository.Select) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	mask := repository.Merge(sel)
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns(mask)+` FROM users WHERE id = $1`, id)
	return scanUser(row, mask)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string, sel ...repository.Select) (*entity.User, error) {
	mask := repository.Merge(sel)
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns(mask)+` FROM users WHERE LOWER(email) = $1`,
		entity.NormalizeEmail(email))
	return scanUser(row, mask)
}

func (r *UserRepository) GetByResetTokenHash(ctx context.Context, hash string, now time.Time) (*entity.User, error) {
	mask := repository.SelectResetToken
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns(mask)+` FROM users
		WHERE reset_password_token_hash = $1 AND reset_password_expires_at > $2`, hash, now)
	return scanUser(row, mask)
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.Email = entity.NormalizeEmail(u.Email)
	u.UpdatedAt = time.Now()
	assignAddressIDs(u.Addresses)
	addrs, err := encodeAddresses(u.Addresses)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET name = $1, email = $2, role = $3, avatar = $4, addresses = $5, is_active = $6,
		    email_verified = $7, updated_at = $8
		WHERE id = $9
	`, u.Name, u.Email, string(u.Role), u.Avatar, addrs, u.IsActive, u.EmailVerified,
		u.UpdatedAt, u.ID)
	if err != nil {
		return mapWriteError(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.Exec(ctx, `
		UPDATE users SET last_login_at = $1, updated_at = NOW() WHERE id = $2
	`, at, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, password_changed_at = $2,
		    reset_password_token_hash = NULL, reset_password_expires_at = NULL, updated_at = NOW()
		WHERE id = $3
	`, hash, changedAt, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, hash string, expiresAt time.Time) error {
	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET reset_password_token_hash = $1, reset_password_expires_at = $2, updated_at = NOW()
		WHERE id = $3
	`, hash, expiresAt, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ConsumeResetToken is a compare-and-clear: the WHERE clause on the digest makes
// the first of two concurrent resets win and the second affect zero rows.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, id, tokenHash, newHash string, changedAt time.Time) error {
	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, password_changed_at = $2,
		    reset_password_token_hash = NULL, reset_password_expires_at = NULL, updated_at = NOW()
		WHERE id = $3 AND reset_password_token_hash = $4
	`, newHash, changedAt, id, tokenHash)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrResetTokenMismatch
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
