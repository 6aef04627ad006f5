package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestStateSigner_RoundTrip(t *testing.T) {
	s, err := jwtx.NewStateSigner([]byte("state-secret"), "gatehouse", time.Minute)
	require.NoError(t, err)

	state, err := s.Issue("/dashboard")
	require.NoError(t, err)

	claims, err := s.Verify(state)
	require.NoError(t, err)
	require.Equal(t, "/dashboard", claims.Return)
	require.Equal(t, "gatehouse", claims.Issuer)
	require.NotEmpty(t, claims.ID)
}

func TestStateSigner_Expired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s, err := jwtx.NewStateSigner([]byte("state-secret"), "gatehouse", time.Minute)
	require.NoError(t, err)
	s.WithClock(func() time.Time { return now })

	state, err := s.Issue("")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Verify(state)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestStateSigner_WrongSecret(t *testing.T) {
	a, err := jwtx.NewStateSigner([]byte("secret-a"), "gatehouse", 0)
	require.NoError(t, err)
	b, err := jwtx.NewStateSigner([]byte("secret-b"), "gatehouse", 0)
	require.NoError(t, err)

	state, err := a.Issue("")
	require.NoError(t, err)

	_, err = b.Verify(state)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestStateSigner_WrongIssuer(t *testing.T) {
	a, err := jwtx.NewStateSigner([]byte("secret"), "gatehouse", 0)
	require.NoError(t, err)
	b, err := jwtx.NewStateSigner([]byte("secret"), "someone-else", 0)
	require.NoError(t, err)

	state, err := a.Issue("")
	require.NoError(t, err)

	_, err = b.Verify(state)
	require.ErrorIs(t, err, jwtx.ErrAudience)
}

func TestStateSigner_Malformed(t *testing.T) {
	s, err := jwtx.NewStateSigner([]byte("secret"), "gatehouse", 0)
	require.NoError(t, err)

	_, err = s.Verify("not-a-jwt")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestNewStateSigner_EmptySecret(t *testing.T) {
	_, err := jwtx.NewStateSigner(nil, "gatehouse", 0)
	require.ErrorIs(t, err, jwtx.ErrEmptySecret)
}
