package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token TTLs for the dashboard session lifecycle.
const (
	// DefaultSessionTTL is the lifetime of a full session token. The HTTP
	// layer may hold the cookie longer for "remember me", but the token
	// itself always expires after this.
	DefaultSessionTTL = 24 * time.Hour

	// PendingTwoFactorTTL is how long a user has to finish the second
	// factor after a successful password check.
	PendingTwoFactorTTL = 5 * time.Minute
)

// SessionClaims are the claims embedded in a dashboard session token.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Username for the authenticated user.
	Username string `json:"username,omitempty"`

	// Email for the authenticated user.
	Email string `json:"email,omitempty"`

	// Role is the user's role ("admin" or "user").
	Role string `json:"role,omitempty"`

	// PendingTwoFactor marks a half-authenticated session: the password
	// checked out but the second factor has not been presented yet. A
	// pending token grants access to nothing except the 2FA completion
	// endpoint.
	PendingTwoFactor bool `json:"pending_2fa,omitempty"`
}

// NewSessionClaims builds claims for a fully authenticated session.
func NewSessionClaims(
	subject, username, email, role string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Username: username,
		Email:    email,
		Role:     role,
	}
}

// NewPendingClaims builds the short-lived token handed out between the
// password step and the 2FA step. It carries only the subject.
func NewPendingClaims(subject, issuer string, now time.Time) SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(PendingTwoFactorTTL)),
			ID:        NewJTI(),
		},
		PendingTwoFactor: true,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
