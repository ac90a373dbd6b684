package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", hash, "hash must never be the plaintext")

	assert.True(t, CheckPassword("pw1", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestGenerateSessionTokenUnique(t *testing.T) {
	a, err := GenerateSessionToken()
	require.NoError(t, err)
	b, err := GenerateSessionToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}

func TestSignAndVerifyCookie(t *testing.T) {
	token, err := GenerateSessionToken()
	require.NoError(t, err)

	value := SignToken(token, "secret")
	got, err := VerifyCookie(value, "secret")
	require.NoError(t, err)
	assert.Equal(t, token, got)

	_, err = VerifyCookie(value, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidCookie)

	_, err = VerifyCookie(token, "secret") // missing signature
	assert.ErrorIs(t, err, ErrInvalidCookie)

	_, err = VerifyCookie(value+"00", "secret") // tampered signature
	assert.ErrorIs(t, err, ErrInvalidCookie)
}
