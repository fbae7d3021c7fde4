package entity

import (
	"strings"
	"time"
)

// DefaultCountry is applied to addresses created without a country.
const DefaultCountry = "México"

// User is the aggregate root for the identity domain.
// PasswordHash holds a bcrypt hash; the reset fields hold a SHA-256 digest
// of the reset secret and its expiry, and are either both set or both nil.
type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          Role
	Avatar        *string
	Addresses     []Address
	IsActive      bool
	EmailVerified bool

	ResetPasswordTokenHash *string
	ResetPasswordExpiresAt *time.Time

	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastLoginAt       *time.Time
	PasswordChangedAt *time.Time
}

// Address is owned by exactly one User.
type Address struct {
	ID        string
	Street    string
	City      string
	State     string
	ZipCode   string
	Country   string
	IsDefault bool
}

// NewUser builds a user with registration defaults. The caller supplies the hash.
func NewUser(name, email, passwordHash string) *User {
	return &User{
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Addresses:    []Address{},
		IsActive:     true,
	}
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasPendingReset reports whether a reset request exists and has not expired at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetPasswordTokenHash != nil && u.ResetPasswordExpiresAt != nil && u.ResetPasswordExpiresAt.After(now)
}

// SetResetToken records a pending reset, replacing any earlier one.
func (u *User) SetResetToken(hash string, expiresAt time.Time) {
	u.ResetPasswordTokenHash = &hash
	u.ResetPasswordExpiresAt = &expiresAt
}

// ClearResetToken drops any pending reset.
func (u *User) ClearResetToken() {
	u.ResetPasswordTokenHash = nil
	u.ResetPasswordExpiresAt = nil
}

// ReplacePassword swaps the hash and invalidates any pending reset.
func (u *User) ReplacePassword(hash string, at time.Time) {
	u.PasswordHash = hash
	u.PasswordChangedAt = &at
	u.ClearResetToken()
}

// RedactSecrets blanks credential material that was not explicitly requested.
func (u *User) RedactSecrets(keepPassword, keepReset bool) {
	if !keepPassword {
		u.PasswordHash = ""
	}
	if !keepReset {
		u.ClearResetToken()
	}
}

// Clone returns a deep copy so stores never hand out shared state.
func (u *User) Clone() *User {
	c := *u
	if u.Avatar != nil {
		v := *u.Avatar
		c.Avatar = &v
	}
	if u.ResetPasswordTokenHash != nil {
		v := *u.ResetPasswordTokenHash
		c.ResetPasswordTokenHash = &v
	}
	if u.ResetPasswordExpiresAt != nil {
		v := *u.ResetPasswordExpiresAt
		c.ResetPasswordExpiresAt = &v
	}
	if u.LastLoginAt != nil {
		v := *u.LastLoginAt
		c.LastLoginAt = &v
	}
	if u.PasswordChangedAt != nil {
		v := *u.PasswordChangedAt
		c.PasswordChangedAt = &v
	}
	c.Addresses = append([]Address(nil), u.Addresses...)
	if c.Addresses == nil {
		c.Addresses = []Address{}
	}
	return &c
}

// FindAddress returns the index of the address with id, or -1.
func (u *User) FindAddress(id string) int {
	for i := range u.Addresses {
		if u.Addresses[i].ID == id {
			return i
		}
	}
	return -1
}

// AddAddress appends a, keeping at most one default. The first address is always default.
func (u *User) AddAddress(a Address) {
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	if len(u.Addresses) == 0 {
		a.IsDefault = true
	}
	if a.IsDefault {
		u.clearDefault()
	}
	u.Addresses = append(u.Addresses, a)
}

// UpdateAddress replaces the address with a.ID. It reports false when the id is unknown.
func (u *User) UpdateAddress(a Address) bool {
	i := u.FindAddress(a.ID)
	if i < 0 {
		return false
	}
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	if a.IsDefault {
		u.clearDefault()
	} else if u.Addresses[i].IsDefault {
		// the default flag only moves, it is never dropped
		a.IsDefault = true
	}
	u.Addresses[i] = a
	return true
}

// RemoveAddress deletes the address with id. It reports false when the id is unknown.
func (u *User) RemoveAddress(id string) bool {
	i := u.FindAddress(id)
	if i < 0 {
		return false
	}
	wasDefault := u.Addresses[i].IsDefault
	u.Addresses = append(u.Addresses[:i], u.Addresses[i+1:]...)
	if wasDefault && len(u.Addresses) > 0 {
		u.Addresses[0].IsDefault = true
	}
	return true
}

func (u *User) clearDefault() {
	for i := range u.Addresses {
		u.Addresses[i].IsDefault = false
	}
}
