package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43) // 32 bytes base64url, no padding

	other, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)

	_, err = GenerateToken(0)
	require.Error(t, err)
	_, err = GenerateToken(-1)
	require.Error(t, err)
}

func TestFingerprintTokenIsDeterministic(t *testing.T) {
	t.Parallel()

	fp1 := FingerprintToken("some-token")
	fp2 := FingerprintToken("some-token")
	require.Equal(t, fp1, fp2)
	require.NotEqual(t, fp1, FingerprintToken("other-token"))
	require.Len(t, fp1, 43)
}

func TestGenerateBackupCodeShape(t *testing.T) {
	t.Parallel()

	seen := map[string]struct{}{}
	for range 50 {
		code, err := GenerateBackupCode()
		require.NoError(t, err)
		require.Len(t, code, 9)
		require.Equal(t, "-", string(code[4]))
		require.NotContains(t, code, "I")
		require.NotContains(t, code, "L")
		require.NotContains(t, code, "O")
		require.NotContains(t, code, "U")
		seen[code] = struct{}{}
	}
	// 50 draws from a 32^8 space should never collide.
	require.Len(t, seen, 50)

	// Codes are uppercase groups joined by a dash.
	code, err := GenerateBackupCode()
	require.NoError(t, err)
	require.Equal(t, strings.ToUpper(code), code)
}
