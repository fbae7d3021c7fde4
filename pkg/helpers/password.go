package helpers

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordCost is the bcrypt work factor (2^10 rounds).
	PasswordCost = 10
	// MaxPasswordBytes is the longest input bcrypt will hash.
	MaxPasswordBytes = 72
)

// ErrPasswordTooLong is returned by Hash when the input is over MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify never fails; a malformed hash simply does not match.
	Verify(plain, hash string) bool
}

// BcryptHasher implements PasswordHasher with a per-call random salt embedded in the output.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: PasswordCost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	return HashPasswordCost(plain, h.Cost)
}

func (h *BcryptHasher) Verify(plain, hash string) bool {
	return CompareHashAndPassword(hash, plain)
}

// HashPassword hashes the plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	return HashPasswordCost(plain, PasswordCost)
}

// HashPasswordCost is HashPassword with an explicit work factor.
func HashPasswordCost(plain string, cost int) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword compares a bcrypt hash with a plain password
func CompareHashAndPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
