package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/metrics"
)

func TestHousekeepingCleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	st := newTestStore(t)
	m := metrics.New()

	hs := NewHousekeepingService(st, slog.New(slog.NewTextHandler(io.Discard, nil)), m, time.Minute)
	hs.Now = func() time.Time { return now }

	u := seedUser(t, st, "ada@example.com")
	_, expired1 := seedToken(t, st, domain.PrincipalUser, u.ID, ptr(now.Add(-time.Hour)), "*")
	_, expired2 := seedToken(t, st, domain.PrincipalUser, u.ID, ptr(now.Add(-time.Minute)), "*")
	_, live := seedToken(t, st, domain.PrincipalUser, u.ID, ptr(now.Add(time.Hour)), "*")
	_, forever := seedToken(t, st, domain.PrincipalUser, u.ID, nil, "*")

	require.EqualValues(t, 2, hs.Cleanup(ctx))
	require.EqualValues(t, 0, hs.Cleanup(ctx))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ExpiredTokensPurgedTotal))

	for _, id := range []string{expired1.ID, expired2.ID} {
		_, err := st.AccessTokens().GetAccessTokenByID(ctx, id)
		require.Error(t, err)
	}
	for _, id := range []string{live.ID, forever.ID} {
		_, err := st.AccessTokens().GetAccessTokenByID(ctx, id)
		require.NoError(t, err)
	}
}

func TestHousekeepingStartStop(t *testing.T) {
	st := newTestStore(t)
	hs := NewHousekeepingService(st, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 0)
	require.Equal(t, time.Hour, hs.Interval)

	hs.Start()
	hs.Stop()
}
