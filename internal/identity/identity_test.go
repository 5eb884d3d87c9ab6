package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverSessionWins(t *testing.T) {
	verifier := NewHMACVerifier("test-secret")
	resolver := NewResolver(verifier)

	token := verifier.Sign(42, time.Now().Add(time.Hour))

	// Both headers present: the session header wins and auth is skipped.
	id, err := resolver.Resolve("sess-abc", "Bearer "+token)
	require.NoError(t, err)
	assert.False(t, id.IsUser())
	assert.Equal(t, "sess-abc", id.SessionID)
}

func TestResolverBearerToken(t *testing.T) {
	verifier := NewHMACVerifier("test-secret")
	resolver := NewResolver(verifier)

	token := verifier.Sign(42, time.Now().Add(time.Hour))

	id, err := resolver.Resolve("", "Bearer "+token)
	require.NoError(t, err)
	assert.True(t, id.IsUser())
	assert.Equal(t, int64(42), id.UserID)
}

func TestResolverNeitherHeader(t *testing.T) {
	resolver := NewResolver(NewHMACVerifier("test-secret"))

	_, err := resolver.Resolve("", "")
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResolverInvalidToken(t *testing.T) {
	resolver := NewResolver(NewHMACVerifier("test-secret"))

	_, err := resolver.Resolve("", "Bearer not-a-token")
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResolveUserRejectsSessionOnly(t *testing.T) {
	resolver := NewResolver(NewHMACVerifier("test-secret"))

	_, err := resolver.ResolveUser("")
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestHMACVerifierRoundTrip(t *testing.T) {
	verifier := NewHMACVerifier("test-secret")

	token := verifier.Sign(1001, time.Now().Add(time.Hour))
	userID, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), userID)
}

func TestHMACVerifierExpired(t *testing.T) {
	verifier := NewHMACVerifier("test-secret")

	token := verifier.Sign(1001, time.Now().Add(-time.Minute))
	_, err := verifier.Verify(token)
	assert.Error(t, err)
}

func TestHMACVerifierWrongSecret(t *testing.T) {
	token := NewHMACVerifier("secret-a").Sign(1001, time.Now().Add(time.Hour))

	_, err := NewHMACVerifier("secret-b").Verify(token)
	assert.Error(t, err)
}

func TestHMACVerifierTamperedUserID(t *testing.T) {
	verifier := NewHMACVerifier("test-secret")

	token := verifier.Sign(1001, time.Now().Add(time.Hour))
	tampered := "9" + token[1:]

	_, err := verifier.Verify(tampered)
	assert.Error(t, err)
}

func TestHMACVerifierMalformed(t *testing.T) {
	verifier := NewHMACVerifier("test-secret")

	for _, token := range []string{"", "a.b", "a.b.c.d", "abc.def.ghi"} {
		_, err := verifier.Verify(token)
		assert.Error(t, err, "token %q should not verify", token)
	}
}
