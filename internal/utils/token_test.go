package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEditToken(t *testing.T) {
	raw, hash, err := NewEditToken()
	require.NoError(t, err)

	assert.Len(t, raw, 2*EditTokenBytes)
	assert.Len(t, hash, 64)
	assert.Equal(t, HashToken(raw), hash)
	assert.NotEqual(t, raw, hash)

	other, _, err := NewEditToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)
}

func TestNewAccessToken(t *testing.T) {
	tok, err := NewAccessToken("secret", "ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, time.Minute)

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (any, error) { return []byte("secret"), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "ops", claims["sub"])
	assert.Equal(t, RoleAdmin, claims["role"])

	_, err = NewAccessToken("", "ops", RoleAdmin, time.Hour)
	assert.Error(t, err)
}
