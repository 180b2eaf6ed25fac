package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"feedshop/internal/services"
)

func TestSecretGate_LoginVerifyLogout(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hay-bale-42"), bcrypt.MinCost)
	require.NoError(t, err)
	g, err := services.NewSecretGate("", string(hash), time.Hour)
	require.NoError(t, err)

	_, _, err = g.Login("wrong")
	assert.ErrorIs(t, err, services.ErrBadSecret)

	tok, exp, err := g.Login("hay-bale-42")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.True(t, exp.After(time.Now()))
	assert.True(t, g.Verify(tok))
	assert.False(t, g.Verify("forged"))
	assert.False(t, g.Verify(""))

	g.Logout(tok)
	assert.False(t, g.Verify(tok))
}

func TestSecretGate_PlainSecretAndExpiry(t *testing.T) {
	g, err := services.NewSecretGate("s3cret", "", 0)
	require.NoError(t, err)

	tok, _, err := g.Login("s3cret")
	require.NoError(t, err)
	assert.False(t, g.Verify(tok), "zero TTL tokens are already expired")
}

func TestSecretGate_Disabled(t *testing.T) {
	g, err := services.NewSecretGate("", "", time.Hour)
	require.NoError(t, err)
	_, _, err = g.Login("")
	assert.ErrorIs(t, err, services.ErrBadSecret)

	_, err = services.NewSecretGate("", "not-a-bcrypt-hash", time.Hour)
	assert.Error(t, err)
}
