package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// GenerateToken creates a cryptographically secure random token of the given
// byte length, returned base64url-encoded without padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token.
// Stores hold fingerprints instead of the raw value, so a database leak does
// not leak usable tokens.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateBackupCode returns a human-typable backup code in the form
// XXXX-XXXX (Crockford-ish alphabet, ambiguous characters excluded).
func GenerateBackupCode() (string, error) {
	const charset = "ABCDEFGHJKMNPQRSTVWXYZ0123456789"
	const groups, groupLen = 2, 4

	out := make([]byte, 0, groups*groupLen+groups-1)
	for g := range groups {
		if g > 0 {
			out = append(out, '-')
		}
		for range groupLen {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
			if err != nil {
				return "", fmt.Errorf("failed to generate backup code: %w", err)
			}
			out = append(out, charset[n.Int64()])
		}
	}
	return string(out), nil
}
