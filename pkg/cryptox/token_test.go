package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	for _, n := range []int{1, 16, SecretSize, 100} {
		s, err := GenerateSecret(n)
		require.NoError(t, err)
		require.Len(t, s, n)
		for _, c := range s {
			require.True(t, strings.ContainsRune(secretAlphabet, c), "unexpected rune %q", c)
		}
	}
}

func TestGenerateSecret_InvalidSize(t *testing.T) {
	for _, n := range []int{0, -1} {
		s, err := GenerateSecret(n)
		require.Error(t, err)
		require.Empty(t, s)
	}
}

func TestMustGenerateSecret_Panics(t *testing.T) {
	require.Panics(t, func() { MustGenerateSecret(0) })
}

func TestGenerateSecret_Unique(t *testing.T) {
	const count = 100
	seen := make(map[string]bool, count)
	for range count {
		s := MustGenerateSecret(SecretSize)
		require.NotContains(t, seen, s)
		seen[s] = true
	}
}

func TestHashSecret(t *testing.T) {
	// sha256("secret")
	const want = "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b"
	require.Equal(t, want, HashSecret("secret"))
	require.Len(t, HashSecret("anything"), 64)
	require.NotEqual(t, HashSecret("a"), HashSecret("b"))
}

func TestEqualHash(t *testing.T) {
	h := HashSecret("secret")
	require.True(t, EqualHash(h, HashSecret("secret")))
	require.False(t, EqualHash(h, HashSecret("other")))
	require.False(t, EqualHash(h, ""))
}
