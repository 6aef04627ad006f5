package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer([]byte("master-key-material"), "google-credentials")
	require.NoError(t, err)

	sealed, err := s.Seal("ya29.access-token")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, "v1:"))
	require.NotContains(t, sealed, "ya29")

	again, err := s.Seal("ya29.access-token")
	require.NoError(t, err)
	require.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "ya29.access-token", plain)
}

func TestSealer_EmptyAndPlaintextPassThrough(t *testing.T) {
	s, err := NewSealer([]byte("k"), "x")
	require.NoError(t, err)

	out, err := s.Seal("")
	require.NoError(t, err)
	require.Empty(t, out)

	plain, err := s.Open("legacy-plaintext-token")
	require.NoError(t, err)
	require.Equal(t, "legacy-plaintext-token", plain)
}

func TestSealer_Nil(t *testing.T) {
	var s *Sealer

	out, err := s.Seal("token")
	require.NoError(t, err)
	require.Equal(t, "token", out)

	real, err := NewSealer([]byte("k"), "x")
	require.NoError(t, err)
	sealed, err := real.Seal("token")
	require.NoError(t, err)

	_, err = s.Open(sealed)
	require.ErrorIs(t, err, ErrSealed)
}

func TestSealer_WrongKeyOrInfo(t *testing.T) {
	a, err := NewSealer([]byte("key-a"), "google-credentials")
	require.NoError(t, err)
	b, err := NewSealer([]byte("key-b"), "google-credentials")
	require.NoError(t, err)
	c, err := NewSealer([]byte("key-a"), "other-purpose")
	require.NoError(t, err)

	sealed, err := a.Seal("refresh-token")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	require.Error(t, err)
	_, err = c.Open(sealed)
	require.Error(t, err)
}

func TestSealer_Tampered(t *testing.T) {
	s, err := NewSealer([]byte("k"), "x")
	require.NoError(t, err)

	_, err = s.Open("v1:!!!")
	require.Error(t, err)

	_, err = s.Open("v1:AAAA")
	require.Error(t, err)
}

func TestNewSealer_EmptyKey(t *testing.T) {
	_, err := NewSealer(nil, "x")
	require.Error(t, err)
}
