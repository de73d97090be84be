package cryptox_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/provision/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSealRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := cryptox.NewSealer([]byte("correct horse battery staple"))
	require.NoError(t, err)

	sealed, err := s.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.True(t, cryptox.IsSealed(sealed))
	require.NotContains(t, sealed, "JBSWY3DPEHPK3PXP")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", plain)

	// Same plaintext twice gives different output (random nonce)
	again, err := s.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.NotEqual(t, sealed, again)
}

func TestSealPlaintextPassthrough(t *testing.T) {
	t.Parallel()

	s, err := cryptox.NewSealer([]byte("key"))
	require.NoError(t, err)

	plain, err := s.Open("not-sealed")
	require.NoError(t, err)
	require.Equal(t, "not-sealed", plain)

	empty, err := s.Seal("")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestSealWrongKey(t *testing.T) {
	t.Parallel()

	a, err := cryptox.NewSealer([]byte("key-a"))
	require.NoError(t, err)
	b, err := cryptox.NewSealer([]byte("key-b"))
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	require.ErrorIs(t, err, cryptox.ErrOpen)

	_, err = a.Open(cryptox.SealedPrefix + "!!!")
	require.ErrorIs(t, err, cryptox.ErrOpen)

	_, err = a.Open(cryptox.SealedPrefix + "AAAA")
	require.ErrorIs(t, err, cryptox.ErrOpen)
}

func TestLoadSealer(t *testing.T) {
	t.Run("nothing configured means plaintext", func(t *testing.T) {
		s, err := cryptox.LoadSealer("", "")
		require.NoError(t, err)
		require.Nil(t, s)
	})

	t.Run("file takes precedence", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seal.key")
		require.NoError(t, os.WriteFile(path, []byte("file-key\n"), 0o600))
		t.Setenv("PROVISION_TEST_SEAL_KEY", "env-key")

		fromFile, err := cryptox.LoadSealer(path, "PROVISION_TEST_SEAL_KEY")
		require.NoError(t, err)

		same, err := cryptox.NewSealer([]byte("file-key"))
		require.NoError(t, err)

		sealed, err := same.Seal("x")
		require.NoError(t, err)
		plain, err := fromFile.Open(sealed)
		require.NoError(t, err)
		require.Equal(t, "x", plain)
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv("PROVISION_TEST_SEAL_KEY", "env-key")
		s, err := cryptox.LoadSealer("", "PROVISION_TEST_SEAL_KEY")
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := cryptox.LoadSealer(filepath.Join(t.TempDir(), "nope"), "")
		require.Error(t, err)
	})
}
