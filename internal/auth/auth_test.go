package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	keys, err := NewKeys("test-secret")
	require.NoError(t, err)

	token, err := keys.GenerateToken("user-123", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := keys.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestParseToken_WrongSecret(t *testing.T) {
	keys, err := NewKeys("right-secret")
	require.NoError(t, err)
	other, err := NewKeys("wrong-secret")
	require.NoError(t, err)

	token, err := keys.GenerateToken("user-123", time.Hour)
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	keys, err := NewKeys("test-secret")
	require.NoError(t, err)

	token, err := keys.GenerateToken("user-123", -time.Minute)
	require.NoError(t, err)

	_, err = keys.ParseToken(token)
	assert.Error(t, err)
}

func TestNewKeys_EmptySecret(t *testing.T) {
	_, err := NewKeys("")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pw123")
	require.NoError(t, err)
	require.NotEqual(t, "pw123", hash)

	assert.NoError(t, CheckPassword(hash, "pw123"))
	assert.Error(t, CheckPassword(hash, "pw124"))
}
