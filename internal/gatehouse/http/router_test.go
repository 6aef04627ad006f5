package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/metrics"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatehouse/pkg/gatehousesdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const pgSecret = "pg-module-secret"

type fixture struct {
	t       *testing.T
	st      *sqlite.Store
	router  *Router
	tokens  *service.TokenService
	rbac    *service.RBACService
	google  *httptest.Server
	mu      sync.Mutex
	calls   []*http.Request
	reply   func(w http.ResponseWriter, r *http.Request)
	metrics *metrics.Metrics
}

// staticCredentials hands out a fixed provider token.
type staticCredentials struct{ token string }

func (c staticCredentials) EnsureLiveAccessToken(context.Context, string) (string, error) {
	return c.token, nil
}
func (c staticCredentials) ForceRefresh(context.Context, string) (string, error) { return "", nil }
func (c staticCredentials) HasRefreshToken(context.Context, string) (bool, error) {
	return false, nil
}
func (c staticCredentials) CurrentAccessToken(context.Context, string) (string, error) {
	return c.token, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "gatehouse.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{t: t, st: st, metrics: metrics.New()}
	f.reply = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"kind":"calendar#events"}`)
	}
	f.google = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, r.Clone(context.Background()))
		f.reply(w, r)
	}))
	t.Cleanup(f.google.Close)

	states, err := jwtx.NewStateSigner([]byte("state-signing-secret"), "gatehouse", 0)
	require.NoError(t, err)

	f.tokens = &service.TokenService{Store: st}
	f.rbac = &service.RBACService{Store: st, Tokens: f.tokens}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter("test", st, f.metrics, logger)
	r.Resolver = &service.ActorResolver{Store: st, Metrics: f.metrics}
	r.RBACService = f.rbac
	r.CalendarService = &service.CalendarService{
		Credentials: staticCredentials{token: "google-token"},
		BaseURL:     f.google.URL,
		Client:      f.google.Client(),
		Metrics:     f.metrics,
	}
	r.LoginService = &service.LoginService{
		Store: st,
		OAuth: &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://gatehouse.test/auth/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:  "http://provider.test/auth",
				TokenURL: "http://provider.test/token",
			},
		},
		States:      states,
		FrontendURL: "http://frontend.test",
		Tokens:      f.tokens,
	}
	r.CORSOrigins = []string{"http://admin.test"}

	generous := httpx.RateLimit{Requests: 10000, Window: time.Minute, Burst: 10000}
	r.Limits = Limits{Strict: generous, Moderate: generous, Lenient: generous, Public: generous}
	r.ApplyRoutes()

	f.router = r
	return f
}

func (f *fixture) userToken(email string) (domain.User, string) {
	f.t.Helper()
	u, err := f.rbac.CreateUser(context.Background(), service.UserInput{Name: email, Email: email})
	require.NoError(f.t, err)
	issued, err := f.tokens.IssueUserToken(context.Background(), f.st.AccessTokens(), u.ID)
	require.NoError(f.t, err)
	return u, issued.PlainText
}

func (f *fixture) moduleToken(slug, secret string, abilities ...string) domain.Module {
	f.t.Helper()
	m, err := f.tokens.ProvisionModule(context.Background(), service.ModuleSpec{
		Slug: slug, Secret: secret, Abilities: abilities,
	})
	require.NoError(f.t, err)
	return m
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// recorded returns the provider calls seen so far.
func (f *fixture) recorded() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.calls...)
}

func (f *fixture) setReply(h func(w http.ResponseWriter, r *http.Request)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = h
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, token := f.userToken("ada@example.com")

	admin, err := f.rbac.CreateRole(ctx, service.RoleInput{Name: "admin"})
	require.NoError(t, err)
	publish, err := f.rbac.CreatePermission(ctx, service.PermissionInput{Name: "posts.publish"})
	require.NoError(t, err)
	require.NoError(t, f.rbac.AssignRole(ctx, u.ID, admin.ID))
	require.NoError(t, f.rbac.AssignPermissionToRole(ctx, admin.ID, publish.ID))

	t.Run("NoToken", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/auth/token/verify", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

		body := decode[gatehousesdk.AuthErrorResponse](t, rec)
		require.False(t, body.Authorized)
		require.NotEmpty(t, body.Error)
	})

	t.Run("UnknownToken", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/auth/token/verify", "nope|nope", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Invalid or expired token.", decode[gatehousesdk.AuthErrorResponse](t, rec).Error)
	})

	t.Run("Authorized", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/auth/token/verify", token, gatehousesdk.VerifyRequest{
			Roles:       []string{"admin"},
			Permissions: []string{"posts.publish"},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode[gatehousesdk.VerifyResponse](t, rec)
		require.True(t, body.Authorized)
		require.Equal(t, u.ID, body.User.ID)
		require.Equal(t, []string{admin.ID}, body.User.RolesList)
		require.Equal(t, []string{publish.ID}, body.User.PermissionsList)
		require.Equal(t, []string{domain.AbilityAll}, body.Token.Abilities)
	})

	t.Run("EmptyBodyOnlyChecksToken", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/auth/token/verify", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("MissingRequirements", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/auth/token/verify", token, gatehousesdk.VerifyRequest{
			Roles:       []string{"admin", "owner"},
			Permissions: []string{"posts.delete"},
		})
		require.Equal(t, http.StatusForbidden, rec.Code)

		body := decode[gatehousesdk.VerifyDeniedResponse](t, rec)
		require.False(t, body.Authorized)
		require.Equal(t, []string{"owner"}, body.MissingRoles)
		require.Equal(t, []string{"posts.delete"}, body.MissingPermissions)
		require.Contains(t, body.Error, "roles and permissions")
	})

	t.Run("BlankRequirement", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/auth/token/verify", token, gatehousesdk.VerifyRequest{Roles: []string{" "}})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, decode[gatehousesdk.ValidationErrorResponse](t, rec).Fields, "roles.0")
	})

	t.Run("ModuleTokenRefused", func(t *testing.T) {
		f.moduleToken("pg", pgSecret)
		rec := f.do(http.MethodPost, "/v1/auth/token/verify", pgSecret, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestBatchPermissions(t *testing.T) {
	f := newFixture(t)
	body := gatehousesdk.BatchPermissionsRequest{Permissions: []gatehousesdk.PermissionRequest{
		{Name: "reports.view"},
		{Name: "reports.export", GuardName: "api"},
	}}

	t.Run("AllowedModule", func(t *testing.T) {
		f.moduleToken("pg", pgSecret)

		rec := f.do(http.MethodPost, "/v1/permissions/batch", pgSecret, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		got := decode[[]gatehousesdk.BatchPermission](t, rec)
		require.Len(t, got, 2)
		require.True(t, got[0].Created)
		require.Equal(t, "web", got[0].GuardName)
		require.Equal(t, "api", got[1].GuardName)

		// Second run finds both.
		rec = f.do(http.MethodPost, "/v1/permissions/batch", pgSecret, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		for _, p := range decode[[]gatehousesdk.BatchPermission](t, rec) {
			require.False(t, p.Created)
		}
	})

	t.Run("ModuleNotAllowListed", func(t *testing.T) {
		f.moduleToken("billing", "billing-secret")

		rec := f.do(http.MethodPost, "/v1/permissions/batch", "billing-secret", gatehousesdk.BatchPermissionsRequest{
			Permissions: []gatehousesdk.PermissionRequest{{Name: "billing.only"}},
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")

		perms, err := f.rbac.ListPermissions(context.Background())
		require.NoError(t, err)
		for _, p := range perms {
			require.NotEqual(t, "billing.only", p.Name)
		}
	})

	t.Run("ModuleWithoutAbility", func(t *testing.T) {
		mod := f.moduleToken("pg", pgSecret, "something:else")
		t.Cleanup(func() { f.moduleToken("pg", pgSecret) })
		require.True(t, mod.IsActive)

		rec := f.do(http.MethodPost, "/v1/permissions/batch", pgSecret, body)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("InactiveModule", func(t *testing.T) {
		mod := f.moduleToken("pg", pgSecret)
		require.NoError(t, f.st.Modules().SetModuleActive(context.Background(), mod.ID, false))
		t.Cleanup(func() { f.moduleToken("pg", pgSecret) })

		rec := f.do(http.MethodPost, "/v1/permissions/batch", pgSecret, body)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("User", func(t *testing.T) {
		_, token := f.userToken("batch@example.com")
		rec := f.do(http.MethodPost, "/v1/permissions/batch", token, gatehousesdk.BatchPermissionsRequest{
			Permissions: []gatehousesdk.PermissionRequest{{Name: "users.batch"}},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("Invalid", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/permissions/batch", pgSecret, gatehousesdk.BatchPermissionsRequest{
			Permissions: []gatehousesdk.PermissionRequest{{Name: "fine"}, {Name: ""}},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, decode[gatehousesdk.ValidationErrorResponse](t, rec).Fields, "permissions.1.name")
	})
}

func TestModuleTokenOnUserRoute(t *testing.T) {
	f := newFixture(t)
	f.moduleToken("pg", pgSecret)

	for _, path := range []string{"/v1/users", "/v1/roles", "/v1/permissions"} {
		rec := f.do(http.MethodGet, path, pgSecret, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRBACRoutes(t *testing.T) {
	f := newFixture(t)
	_, token := f.userToken("admin@example.com")

	rec := f.do(http.MethodPost, "/v1/roles", token, gatehousesdk.RoleRequest{Name: "editor"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	role := decode[gatehousesdk.Role](t, rec)

	rec = f.do(http.MethodPost, "/v1/roles", token, gatehousesdk.RoleRequest{Name: "editor"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPost, "/v1/permissions", token, gatehousesdk.PermissionRequest{Name: "posts.edit"})
	require.Equal(t, http.StatusCreated, rec.Code)
	perm := decode[gatehousesdk.Permission](t, rec)

	rec = f.do(http.MethodPost, "/v1/users", token, gatehousesdk.UserRequest{Name: "Grace", Email: "grace@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	grace := decode[gatehousesdk.User](t, rec)

	rec = f.do(http.MethodPost, "/v1/users", token, gatehousesdk.UserRequest{Name: "", Email: "not-an-email"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fields := decode[gatehousesdk.ValidationErrorResponse](t, rec).Fields
	require.Contains(t, fields, "name")
	require.Contains(t, fields, "email")

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/roles/"+role.ID+"/permissions/"+perm.ID, token, nil).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/users/"+grace.ID+"/roles/"+role.ID, token, nil).Code)

	rec = f.do(http.MethodGet, "/v1/users/"+grace.ID+"/roles", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	roles := decode[gatehousesdk.UserRolesResponse](t, rec).Roles
	require.Len(t, roles, 1)
	require.Equal(t, "editor", roles[0].Name)

	rec = f.do(http.MethodGet, "/v1/users/"+grace.ID+"/permissions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[gatehousesdk.UserPermissionsResponse](t, rec).Permissions, 1)

	rec = f.do(http.MethodGet, "/v1/permissions/"+perm.ID+"/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[gatehousesdk.PermissionUsersResponse](t, rec).Users
	require.Len(t, users, 1)
	require.Equal(t, grace.ID, users[0].ID)

	rec = f.do(http.MethodGet, "/v1/roles/dropdown", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []gatehousesdk.DropdownOption{{Value: role.ID, Label: "editor"}}, decode[[]gatehousesdk.DropdownOption](t, rec))

	require.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/users/missing", token, nil).Code)
	require.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/v1/users/"+grace.ID+"/roles/missing", token, nil).Code)

	rec = f.do(http.MethodDelete, "/v1/roles/"+role.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodGet, "/v1/users/"+grace.ID+"/roles", token, nil)
	require.Empty(t, decode[gatehousesdk.UserRolesResponse](t, rec).Roles)

	req := httptest.NewRequest(http.MethodPost, "/v1/users", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarProxy(t *testing.T) {
	f := newFixture(t)
	_, token := f.userToken("cal@example.com")

	rec := f.do(http.MethodPost, "/v1/google/calendar/proxy", token, gatehousesdk.ProxyRequest{
		Method: "get",
		Path:   "calendars/primary/events",
		Query:  map[string]any{"maxResults": 10, "singleEvents": true, "q": "standup"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "google", rec.Header().Get(UpstreamHeader))
	require.JSONEq(t, `{"kind":"calendar#events"}`, rec.Body.String())

	calls := f.recorded()
	require.Len(t, calls, 1)
	call := calls[0]
	require.Equal(t, http.MethodGet, call.Method)
	require.Equal(t, "/calendars/primary/events", call.URL.Path)
	require.Equal(t, url.Values{"maxResults": {"10"}, "singleEvents": {"true"}, "q": {"standup"}}, call.URL.Query())
	require.Equal(t, "Bearer google-token", call.Header.Get("Authorization"))

	t.Run("ProviderErrorPassedThrough", func(t *testing.T) {
		f.setReply(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"code":429}}`)
		})
		rec := f.do(http.MethodPost, "/v1/google/calendar/proxy", token, gatehousesdk.ProxyRequest{Method: "GET", Path: "users/me/calendarList"})
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.JSONEq(t, `{"error":{"code":429}}`, rec.Body.String())
	})

	t.Run("BadRequests", func(t *testing.T) {
		for _, req := range []gatehousesdk.ProxyRequest{
			{Method: "TRACE", Path: "calendars/primary"},
			{Method: "GET", Path: "../oauth2/v2/userinfo"},
			{Method: "GET", Path: "calendars", Query: map[string]any{"nested": map[string]any{"a": 1}}},
		} {
			rec := f.do(http.MethodPost, "/v1/google/calendar/proxy", token, req)
			require.Equal(t, http.StatusBadRequest, rec.Code, req.Path)
			require.Empty(t, rec.Header().Get(UpstreamHeader))
		}
	})
}

func TestMeet(t *testing.T) {
	f := newFixture(t)
	_, token := f.userToken("meet@example.com")

	valid := gatehousesdk.MeetingRequest{
		Summary: "Standup",
		Start:   &gatehousesdk.EventTime{DateTime: "2026-10-19T09:00:00Z"},
		End:     &gatehousesdk.EventTime{DateTime: "2026-10-19T09:15:00Z"},
	}

	t.Run("Invalid", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/google/meet", token, gatehousesdk.MeetingRequest{})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		fields := decode[gatehousesdk.ValidationErrorResponse](t, rec).Fields
		require.Contains(t, fields, "summary")
		require.Empty(t, f.recorded())
	})

	t.Run("Created", func(t *testing.T) {
		f.setReply(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{"id":"evt1","hangoutLink":"https://meet.google.com/abc"}`)
		})
		rec := f.do(http.MethodPost, "/v1/google/meet", token, valid)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.JSONEq(t, `{"id":"evt1","hangoutLink":"https://meet.google.com/abc"}`, rec.Body.String())

		calls := f.recorded()
		call := calls[len(calls)-1]
		require.Equal(t, "/calendars/primary/events", call.URL.Path)
		require.Equal(t, "1", call.URL.Query().Get("conferenceDataVersion"))
	})

	t.Run("Refused", func(t *testing.T) {
		f.setReply(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"message":"quota"}}`)
		})
		rec := f.do(http.MethodPost, "/v1/google/meet", token, valid)
		require.Equal(t, http.StatusForbidden, rec.Code)

		body := decode[gatehousesdk.MeetingErrorResponse](t, rec)
		require.NotEmpty(t, body.Error)
		require.JSONEq(t, `{"error":{"message":"quota"}}`, string(body.Details))
	})
}

func TestLoginRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/auth/login?return=/dashboard", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "provider.test", loc.Host)
	require.Equal(t, "offline", loc.Query().Get("access_type"))
	require.NotEmpty(t, loc.Query().Get("state"))

	rec = f.do(http.MethodGet, "/auth/callback?state=forged&code=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, gatehousesdk.ErrorCodeInvalidState, decode[httpx.ErrorResponse](t, rec).Error)

	rec = f.do(http.MethodGet, "/auth/callback?state="+url.QueryEscape(loc.Query().Get("state")), "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, gatehousesdk.ErrorCodeLoginFailed, decode[httpx.ErrorResponse](t, rec).Error)

	rec = f.do(http.MethodGet, "/auth/callback?error=access_denied", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSafeReturn(t *testing.T) {
	require.Equal(t, "/dashboard", safeReturn("/dashboard"))
	require.Empty(t, safeReturn("//evil.test"))
	require.Empty(t, safeReturn("https://evil.test"))
	require.Empty(t, safeReturn(`/\evil.test`))
}

func TestSystemRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", decode[gatehousesdk.HealthResponse](t, rec).Version)

	rec = f.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[gatehousesdk.HealthResponse](t, rec).Checks.Database)

	rec = f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `gatehouse_http_requests_total{method="GET",route="GET /livez",status="200"} 1`)

	require.NoError(t, f.st.Close())
	rec = f.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "degraded", decode[gatehousesdk.HealthResponse](t, rec).Status)
}

func TestCORS(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/users", nil)
	req.Header.Set("Origin", "http://admin.test")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://admin.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("Origin", "http://elsewhere.test")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
