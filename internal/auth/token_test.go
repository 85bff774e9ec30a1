package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/portfolio-gate/internal/auth"
	"github.com/BradenHooton/portfolio-gate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "test-signing-secret-32-characters!"

func newTestTokenManager(t *testing.T, now *time.Time) *auth.SessionTokenManager {
	t.Helper()
	tm, err := auth.NewSessionTokenManager(testSigningSecret, 24*time.Hour)
	require.NoError(t, err)
	tm.SetClock(func() time.Time { return *now })
	return tm
}

func TestNewSessionTokenManager_RequiresSecret(t *testing.T) {
	_, err := auth.NewSessionTokenManager("", 24*time.Hour)
	assert.Error(t, err)
}

func TestSessionToken_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := newTestTokenManager(t, &now)

	token, err := tm.IssueToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	assert.True(t, tm.VerifyToken(token))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.True(t, claims.PortfolioAccess)
	assert.Equal(t, auth.SessionTokenIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, now.Equal(claims.IssuedAt.Time))
	assert.True(t, now.Add(24*time.Hour).Equal(claims.ExpiresAt.Time))
}

func TestSessionToken_ValidUntilExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuedAt := now
	tm := newTestTokenManager(t, &now)

	token, err := tm.IssueToken()
	require.NoError(t, err)

	for _, offset := range []time.Duration{time.Minute, 12 * time.Hour, 24*time.Hour - time.Second} {
		now = issuedAt.Add(offset)
		assert.True(t, tm.VerifyToken(token), "token should be valid %v after issue", offset)
	}

	now = issuedAt.Add(24*time.Hour + time.Second)
	assert.False(t, tm.VerifyToken(token), "token should be expired")
}

func TestSessionToken_TamperedByteIsRejected(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := newTestTokenManager(t, &now)

	token, err := tm.IssueToken()
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		assert.False(t, tm.VerifyToken(tampered), "token altered at byte %d should be rejected", i)
	}
}

func TestSessionToken_DifferentSecretIsRejected(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := newTestTokenManager(t, &now)

	other, err := auth.NewSessionTokenManager("another-signing-secret-32-chars!!", 24*time.Hour)
	require.NoError(t, err)
	other.SetClock(func() time.Time { return now })

	token, err := other.IssueToken()
	require.NoError(t, err)

	assert.False(t, tm.VerifyToken(token))
}

func TestSessionToken_MalformedInput(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := newTestTokenManager(t, &now)

	inputs := []string{
		"",
		"not-a-token",
		"a.b.c",
		strings.Repeat("x", 5000),
		"eyJhbGciOiJub25lIn0.eyJwb3J0Zm9saW9fYWNjZXNzIjp0cnVlfQ.",
	}

	for _, input := range inputs {
		assert.False(t, tm.VerifyToken(input), "input %q should be rejected", input)
	}

	_, err := tm.ParseToken("not-a-token")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestSessionToken_UniqueIDs(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := newTestTokenManager(t, &now)

	first, err := tm.IssueToken()
	require.NoError(t, err)
	second, err := tm.IssueToken()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
