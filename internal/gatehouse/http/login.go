package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
	"github.com/aussiebroadwan/gatehouse/pkg/gatehousesdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// LoginHandler runs the browser side of the Google sign-in.
type LoginHandler struct {
	Login *service.LoginService
}

// HandleLogin godoc
//
//	@Summary		Start Google sign-in
//	@Description	Redirects to Google's consent screen with offline access and a signed state.
//	@Tags			Auth
//	@Param			return	query	string	false	"Relative path the frontend wants back after sign-in"
//	@Success		302
//	@Failure		500	{object}	gatehousesdk.ErrorResponse
//	@Router			/auth/login [get].
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	target, err := h.Login.AuthCodeURL(safeReturn(r.URL.Query().Get("return")))
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to issue login state", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, gatehousesdk.ErrorCodeServerError, "Failed to start sign-in")
		return
	}

	httpx.NoCache(w)
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleCallback godoc
//
//	@Summary		Google sign-in callback
//	@Description	Exchanges the code, upserts the user by email, stores the Google credentials and redirects
//	@Description	to FRONTEND_URL/login-success?token=<bearer token>, adding return=<path> when /auth/login was given one.
//	@Tags			Auth
//	@Param			state	query	string	true	"Signed state from /auth/login"
//	@Param			code	query	string	true	"Authorization code"
//	@Success		302
//	@Failure		400	{object}	gatehousesdk.ErrorResponse	"invalid state or missing code"
//	@Failure		502	{object}	gatehousesdk.ErrorResponse	"Google refused the exchange"
//	@Router			/auth/callback [get].
func (h *LoginHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		httpx.WriteError(w, http.StatusBadRequest, gatehousesdk.ErrorCodeLoginFailed, "Sign-in was not completed: "+e)
		return
	}
	if q.Get("code") == "" {
		httpx.WriteError(w, http.StatusBadRequest, gatehousesdk.ErrorCodeLoginFailed, "Missing authorization code")
		return
	}

	res, err := h.Login.Callback(ctx, q.Get("state"), q.Get("code"))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidState):
		httpx.WriteError(w, http.StatusBadRequest, gatehousesdk.ErrorCodeInvalidState, "Invalid or expired state")
		return
	case errors.Is(err, service.ErrLoginFailed):
		httpx.WriteError(w, http.StatusBadGateway, gatehousesdk.ErrorCodeLoginFailed, "Google sign-in failed")
		return
	default:
		writeServiceError(w, r, err, "User")
		return
	}

	httpx.NoCache(w)
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

// safeReturn keeps only same-origin relative paths.
func safeReturn(ret string) string {
	if !strings.HasPrefix(ret, "/") || strings.HasPrefix(ret, "//") || strings.Contains(ret, `\`) {
		return ""
	}
	return ret
}
