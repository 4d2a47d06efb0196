package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner([]byte("0123456789abcdef0123456789abcdef"), "partnerdesk-test")
	require.NoError(t, err)
	return s
}

func TestNewSignerRejectsWeakSecret(t *testing.T) {
	t.Parallel()

	_, err := NewSigner([]byte("short"), "iss")
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	s := testSigner(t)

	claims := NewSessionClaims("user-1", "jane", "jane@co.com", "user", "partnerdesk-test", DefaultSessionTTL, time.Now())
	raw, err := s.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	got, err := s.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "jane", got.Username)
	require.Equal(t, "jane@co.com", got.Email)
	require.Equal(t, "user", got.Role)
	require.False(t, got.PendingTwoFactor)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()
	s := testSigner(t)

	claims := NewSessionClaims("user-1", "jane", "jane@co.com", "user", "partnerdesk-test", time.Minute, time.Now().Add(-2*time.Minute))
	raw, err := s.Sign(claims)
	require.NoError(t, err)

	_, err = s.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuerAndWrongKey(t *testing.T) {
	t.Parallel()
	s := testSigner(t)

	otherIssuer, err := NewSigner([]byte("0123456789abcdef0123456789abcdef"), "someone-else")
	require.NoError(t, err)
	raw, err := otherIssuer.Sign(NewSessionClaims("u", "n", "e", "user", "someone-else", time.Hour, time.Now()))
	require.NoError(t, err)
	_, err = s.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	otherKey, err := NewSigner([]byte("ffffffffffffffffffffffffffffffff"), "partnerdesk-test")
	require.NoError(t, err)
	raw, err = otherKey.Sign(NewSessionClaims("u", "n", "e", "user", "partnerdesk-test", time.Hour, time.Now()))
	require.NoError(t, err)
	_, err = s.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPendingClaimsAreShortLivedAndFlagged(t *testing.T) {
	t.Parallel()

	now := time.Now()
	claims := NewPendingClaims("user-1", "partnerdesk-test", now)
	require.True(t, claims.PendingTwoFactor)
	require.WithinDuration(t, now.Add(PendingTwoFactorTTL), claims.ExpiresAt.Time, time.Second)
}
