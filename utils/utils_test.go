package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cr3t")
	tok, exp, err := GenerateToken(secret, "u-1", "a@example.org", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Second)

	claims, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "a@example.org", claims.Email)

	_, err = ParseToken([]byte("other"), tok)
	assert.Error(t, err)

	expired, _, err := GenerateToken(secret, "u-1", "a@example.org", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.Error(t, err)
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken([]byte("s"), tok)
	assert.Error(t, err)
}

func TestSliceHelpers(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Unique([]string{"a", "b", "a"}))
	assert.Equal(t, []string{"a", "b", "c"}, Union([]string{"a", "b"}, "b", "c"))

	out, changed := Without([]string{"a", "b", "a"}, "a")
	assert.True(t, changed)
	assert.Equal(t, []string{"b"}, out)
	_, changed = Without([]string{"b"}, "a")
	assert.False(t, changed)
}

func TestIDs(t *testing.T) {
	id := uuid.NewString()
	assert.True(t, IsValidID(id))
	assert.False(t, IsValidID("123"))
	assert.False(t, IsValidID("{"+id[:34]+"}"))

	bad, ok := AllValidIDs([]string{id, "nope"})
	assert.False(t, ok)
	assert.Equal(t, "nope", bad)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Broken light", SanitizeText("  <b>Broken</b> light "))
	assert.Equal(t, "<b>Dark</b>", SanitizeRich(`<b onclick="x()">Dark</b><script>alert(1)</script>`))
}

func TestPasswords(t *testing.T) {
	PasswordCost = bcrypt.MinCost
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
}
