package cryptox

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setTestPepper(t *testing.T) {
	t.Helper()
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
	pepper = "" // force reload from the temp file
}

func TestHashAndVerifyPassword(t *testing.T) {
	setTestPepper(t)

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$")

	require.NoError(t, VerifyPassword("correct horse battery staple", hash))
	require.ErrorIs(t, VerifyPassword("wrong password", hash), ErrPasswordMismatch)
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	setTestPepper(t)

	a, err := HashPassword("same input")
	require.NoError(t, err)
	b, err := HashPassword("same input")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	setTestPepper(t)

	for _, bad := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=1$not-base64!$aGFzaA",
	} {
		require.Error(t, VerifyPassword("anything", bad))
	}
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword()
	require.NoError(t, err)
	require.Len(t, pw, 12)
}
