package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestSignParseRoundTrip(t *testing.T) {
	p := Principal{UserID: "u-1", Email: "jo@example.com", Role: RoleCustomer}

	token, err := Sign(p, secret, time.Hour)
	require.NoError(t, err)

	got, err := Parse(token, secret)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := Sign(Principal{UserID: "u-1", Role: RoleCustomer}, secret, time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := Sign(Principal{UserID: "u-1", Role: RoleCustomer}, secret, -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-token", secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRolePredicates(t *testing.T) {
	assert.True(t, Principal{Role: RoleCustomer}.IsCustomer())
	assert.False(t, Principal{Role: RoleCustomer}.IsAdmin())
	assert.True(t, Principal{Role: RoleAdmin}.IsAdmin())
	assert.False(t, Principal{Role: RoleAdmin}.IsCustomer())
	assert.False(t, Principal{}.IsCustomer())
}
