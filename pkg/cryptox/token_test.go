package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"128-bit token", TokenSize128},
		{"256-bit token", TokenSize256},
		{"custom size", 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			token2, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, token2, "tokens should be unique")
		})
	}

	_, err := GenerateToken(0)
	require.Error(t, err)
}

func TestRandomString(t *testing.T) {
	s, err := RandomString(LowerAlpha, 16)
	require.NoError(t, err)
	require.Len(t, s, 16)
	require.Empty(t, strings.Trim(s, LowerAlpha), "only lowercase letters expected")

	_, err = RandomString("", 4)
	require.Error(t, err)
	_, err = RandomString(LowerAlpha, 0)
	require.Error(t, err)
}

func TestFingerprintAndEqual(t *testing.T) {
	require.Equal(t, FingerprintToken("abc"), FingerprintToken("abc"))
	require.NotEqual(t, FingerprintToken("abc"), FingerprintToken("abd"))
	require.Len(t, FingerprintToken("abc"), 43)

	require.True(t, EqualTokens("abc", "abc"))
	require.False(t, EqualTokens("abc", "abcd"))
}
