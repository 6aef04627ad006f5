package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "gatehouse.db"))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, st store.Store, email string) domain.User {
	t.Helper()
	u := domain.User{ID: idx.New().String(), Name: email, Email: email}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func seedModule(t *testing.T, st store.Store, slug string, active bool) domain.Module {
	t.Helper()
	m, err := st.Modules().UpsertModule(context.Background(), domain.Module{
		ID: idx.New().String(), Name: slug, Slug: slug, IsActive: active,
	})
	require.NoError(t, err)
	return m
}

// seedToken stores a token for the principal and returns the bare secret.
func seedToken(t *testing.T, st store.Store, kind domain.PrincipalType, principalID string, exp *time.Time, abilities ...string) (string, domain.AccessToken) {
	t.Helper()
	secret := cryptox.MustGenerateSecret(cryptox.SecretSize)
	tok := domain.AccessToken{
		ID:            idx.New().String(),
		PrincipalType: kind,
		PrincipalID:   principalID,
		Name:          "test",
		TokenHash:     cryptox.HashSecret(secret),
		Abilities:     abilities,
		ExpiresAt:     exp,
	}
	require.NoError(t, st.AccessTokens().CreateAccessToken(context.Background(), tok))
	return secret, tok
}

// countingStore records how often the token registry is consulted.
type countingStore struct {
	store.Store
	tokenLookups int
}

func (c *countingStore) AccessTokens() store.AccessTokens {
	c.tokenLookups++
	return c.Store.AccessTokens()
}

func ptr[T any](v T) *T { return &v }
