package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/domain"
)

var testUser = &domain.User{ID: "7d3c0b8e-user", Username: "alice"}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	m, err := NewTokenManager([]byte("super-secret"), time.Hour)
	require.NoError(t, err)

	tok, exp, err := m.Issue(testUser)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.Equal(t, 2, strings.Count(tok, "."), "compact JWS has three segments")
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 2*time.Second)

	claims, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, testUser.ID, claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	issuedAt := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	issuer, err := NewTokenManager(secret, time.Hour, WithClock(fixedClock(issuedAt)))
	require.NoError(t, err)
	tok, exp, err := issuer.Issue(testUser)
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(time.Hour), exp)

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{name: "just issued", at: issuedAt},
		{name: "59 minutes later", at: issuedAt.Add(59 * time.Minute)},
		{name: "61 minutes later", at: issuedAt.Add(61 * time.Minute), wantErr: ErrExpiredToken},
		{name: "next day", at: issuedAt.Add(24 * time.Hour), wantErr: ErrExpiredToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier, err := NewTokenManager(secret, time.Hour, WithClock(fixedClock(tt.at)))
			require.NoError(t, err)

			_, err = verifier.Verify(tok)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer, err := NewTokenManager([]byte("right-secret"), time.Hour)
	require.NoError(t, err)
	tok, _, err := issuer.Issue(testUser)
	require.NoError(t, err)

	verifier, err := NewTokenManager([]byte("wrong-secret"), time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	m, err := NewTokenManager([]byte("k"), time.Hour)
	require.NoError(t, err)

	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		_, err := m.Verify(tok)
		require.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	m, err := NewTokenManager([]byte("k"), time.Hour)
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUser.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RequiresExpiry(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	m, err := NewTokenManager(secret, time.Hour)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: testUser.ID},
	})
	tok, err := noExp.SignedString(secret)
	require.NoError(t, err)

	_, err = m.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenManager(t *testing.T) {
	t.Parallel()

	_, err := NewTokenManager(nil, time.Hour)
	require.Error(t, err)

	m, err := NewTokenManager([]byte("k"), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, m.TTL())
}

func TestIssue_RequiresUserID(t *testing.T) {
	t.Parallel()

	m, err := NewTokenManager([]byte("k"), time.Hour)
	require.NoError(t, err)

	_, _, err = m.Issue(&domain.User{Username: "ghost"})
	require.Error(t, err)
}
