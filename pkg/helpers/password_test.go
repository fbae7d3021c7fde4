package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	for _, p := range []string{"secret123", "contraseña-ñ", strings.Repeat("x", 60)} {
		hash, err := h.Hash(p)
		require.NoError(t, err)
		assert.NotEqual(t, p, hash)
		assert.True(t, h.Verify(p, hash))
		assert.False(t, h.Verify(p+"!", hash))
	}
}

func TestBcryptHasher_SaltPerCall(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	a, err := h.Hash("secret123")
	require.NoError(t, err)
	b, err := h.Hash("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	h := NewBcryptHasher()

	assert.False(t, h.Verify("secret123", ""))
	assert.False(t, h.Verify("secret123", "not-a-bcrypt-hash"))
}

func TestHashPassword_DefaultCost(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)
}

func TestBcryptHasher_ByteLimit(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	_, err := h.Hash(strings.Repeat("a", MaxPasswordBytes))
	require.NoError(t, err)

	_, err = h.Hash(strings.Repeat("a", 100))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	// 40 runes but 80 bytes
	_, err = h.Hash(strings.Repeat("ñ", 40))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
