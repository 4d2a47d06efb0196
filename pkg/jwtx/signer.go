package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers every verification failure: bad signature,
	// wrong algorithm, expired, not yet valid, wrong issuer. Callers treat
	// them all as "unauthenticated" rather than distinguishing.
	ErrInvalidToken = errors.New("jwtx: invalid token")

	// ErrWeakSecret rejects HMAC secrets below 256 bits.
	ErrWeakSecret = errors.New("jwtx: signing secret must be at least 32 bytes")
)

// Signer signs and verifies dashboard session tokens with a single HS256
// secret. The dashboard is the only issuer and the only verifier of these
// tokens, so there is no key distribution problem to solve.
type Signer struct {
	secret []byte
	issuer string
}

func NewSigner(secret []byte, issuer string) (*Signer, error) {
	if len(secret) < 32 {
		return nil, ErrWeakSecret
	}
	return &Signer{secret: secret, issuer: issuer}, nil
}

// Issuer returns the issuer baked into signed and verified tokens.
func (s *Signer) Issuer() string { return s.issuer }

// Sign produces a compact serialized JWT for the given claims.
func (s *Signer) Sign(claims SessionClaims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a compact token, returning its claims.
// Expiry, not-before and issuer are all enforced here.
func (s *Signer) Verify(raw string) (SessionClaims, error) {
	var claims SessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return s.secret, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}
