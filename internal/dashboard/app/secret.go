package app

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

const sessionSecretBytes = 32

// loadOrGenerateSessionSecret reads the HMAC secret for session tokens from
// file, generating one on first start. The file keeps sessions valid across
// restarts; losing it just logs everyone out.
func loadOrGenerateSessionSecret(path string) ([]byte, error) {
	if raw, err := os.ReadFile(path); err == nil {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("session secret file %s is corrupt: %w", path, err)
		}
		if len(decoded) < sessionSecretBytes {
			return nil, fmt.Errorf("session secret in %s is too short", path)
		}
		return decoded, nil
	}

	secret := make([]byte, sessionSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(secret)
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write session secret file: %w", err)
	}
	return secret, nil
}
