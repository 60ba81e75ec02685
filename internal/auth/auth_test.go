package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	m := NewManager()

	token, err := m.Issue(7)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, 7, userID)
}

func TestValidateUnknownToken(t *testing.T) {
	m := NewManager()

	_, err := m.Validate("nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevoke(t *testing.T) {
	m := NewManager()

	token, err := m.Issue(7)
	require.NoError(t, err)

	m.Revoke(token)
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensAreUnique(t *testing.T) {
	m := NewManager()

	a, err := m.Issue(1)
	require.NoError(t, err)
	b, err := m.Issue(1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse battery"))
	assert.Error(t, CheckPassword(hash, "wrong password"))
}
