package gatehousesdk

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "tok|secret")
}

func TestVerifyToken(t *testing.T) {
	t.Parallel()

	t.Run("authorized", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/auth/token/verify", r.URL.Path)
			require.Equal(t, "Bearer tok|secret", r.Header.Get("Authorization"))

			var req VerifyRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, []string{"admin"}, req.Roles)

			_, _ = io.WriteString(w, `{"authorized":true,"user":{"id":"u1","roles_list":["r1"]},"token":{"abilities":["*"]}}`)
		})

		res, err := client.VerifyToken(t.Context(), VerifyRequest{Roles: []string{"admin"}})
		require.NoError(t, err)
		require.True(t, res.Authorized)
		require.Equal(t, "u1", res.User.ID)
		require.Equal(t, []string{"*"}, res.Token.Abilities)
	})

	t.Run("denied", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"authorized":false,"error":"nope","missing_roles":["admin"],"missing_permissions":[]}`)
		})

		_, err := client.VerifyToken(t.Context(), VerifyRequest{Roles: []string{"admin"}})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		require.True(t, apiErr.Forbidden())
		require.Equal(t, []string{"admin"}, apiErr.MissingRoles)
	})
}

func TestBatchCreatePermissions_ValidationError(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"error":"validation_failed","fields":{"permissions.0.name":"required"}}`)
	})

	_, err := client.BatchCreatePermissions(t.Context(), []PermissionRequest{{}})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, ErrorCodeValidationFailed, apiErr.Code)
	require.Equal(t, "required", apiErr.Fields["permissions.0.name"])
}

func TestProxyCalendar(t *testing.T) {
	t.Parallel()

	t.Run("provider status is passed through", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Gatehouse-Upstream", "google")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404}}`)
		})

		res, err := client.ProxyCalendar(t.Context(), ProxyRequest{Method: "GET", Path: "calendars/x"})
		require.NoError(t, err)
		require.Equal(t, http.StatusNotFound, res.StatusCode)
		require.JSONEq(t, `{"error":{"code":404}}`, string(res.Body))
	})

	t.Run("service refusal is an error", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"authorized":false,"error":"Invalid or expired token."}`)
		})

		_, err := client.ProxyCalendar(t.Context(), ProxyRequest{Method: "GET", Path: "calendars/x"})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		require.True(t, apiErr.Unauthorized())
	})
}

func TestParseErrorResponse_NonJSON(t *testing.T) {
	t.Parallel()

	err := parseErrorResponse(&http.Response{StatusCode: http.StatusBadGateway}, []byte("upstream down"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "Bad Gateway", apiErr.Code)
	require.Equal(t, "upstream down", apiErr.Description)
}
