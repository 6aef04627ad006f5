package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	t.Setenv("GATEHOUSE_DATABASE_FILE", filepath.Join(t.TempDir(), "gatehouse.db"))
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	return cfg
}

func TestNew_SeedsModuleAndServes(t *testing.T) {
	cfg := testConfig(t)
	cfg.ModulePGToken = "pg-module-token-for-tests"
	cfg.MasterKey = "0123456789abcdef0123456789abcdef"

	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })

	require.NotNil(t, app.sealer)

	mod, err := app.db.Modules().GetModuleBySlug(context.Background(), "pg")
	require.NoError(t, err)
	require.True(t, mod.IsActive)
	require.Equal(t, "PG", mod.Name)

	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// The seeded token passes module gating on the batch route.
	req := httptest.NewRequest(http.MethodPost, "/v1/permissions/batch", nil)
	req.Header.Set("Authorization", "Bearer "+cfg.ModulePGToken)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestNew_SeedIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.ModulePGToken = "pg-module-token-for-tests"

	first, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, first.db.Close())

	second, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.db.Close() })

	mods, err := second.db.Modules().ListModules(context.Background())
	require.NoError(t, err)
	require.Len(t, mods, 1)
}

func TestNew_WithoutSecrets(t *testing.T) {
	app, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })

	require.Nil(t, app.sealer)
	require.NotNil(t, app.states)

	mods, err := app.db.Modules().ListModules(context.Background())
	require.NoError(t, err)
	require.Empty(t, mods)
}
