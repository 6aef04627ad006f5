package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
	"github.com/aussiebroadwan/gatehouse/pkg/gatehousesdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

type VerifyHandler struct {
	RBAC *service.RBACService
}

// HandleVerify godoc
//
//	@Summary		Verify a user token
//	@Description	Checks the bearer token and, optionally, that its user holds every listed role and permission.
//	@Description	Permissions granted through roles count.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		gatehousesdk.VerifyRequest			false	"Required roles and permissions"
//	@Success		200		{object}	gatehousesdk.VerifyResponse
//	@Failure		401		{object}	gatehousesdk.AuthErrorResponse
//	@Failure		403		{object}	gatehousesdk.VerifyDeniedResponse
//	@Failure		422		{object}	gatehousesdk.ValidationErrorResponse
//	@Router			/v1/auth/token/verify [post].
func (h *VerifyHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ua := userActor(r)

	var req gatehousesdk.VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if fields := validateNames("roles", req.Roles, validateNames("permissions", req.Permissions, nil)); len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	verdict, err := h.RBAC.Verify(ctx, ua.User.ID, domain.Requirements{
		Roles:       req.Roles,
		Permissions: req.Permissions,
	})
	if err != nil {
		writeServiceError(w, r, err, "User")
		return
	}

	if !verdict.Authorized() {
		httpx.WriteJSON(w, http.StatusForbidden, gatehousesdk.VerifyDeniedResponse{
			Authorized:         false,
			Error:              deniedMessage(verdict),
			MissingRoles:       verdict.MissingRoles,
			MissingPermissions: verdict.MissingPermissions,
		})
		return
	}

	abilities := ua.AccessToken.Abilities
	if abilities == nil {
		abilities = []string{}
	}

	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.VerifyResponse{
		Authorized: true,
		User: gatehousesdk.VerifiedUser{
			ID:              ua.User.ID,
			Name:            ua.User.Name,
			Email:           ua.User.Email,
			RolesList:       mapAll(verdict.Roles, func(r domain.Role) string { return r.ID }),
			PermissionsList: mapAll(verdict.Permissions, func(p domain.Permission) string { return p.ID }),
			UpdatedAt:       ua.User.UpdatedAt,
		},
		Token: gatehousesdk.VerifiedToken{
			Abilities: abilities,
			ExpiresAt: ua.AccessToken.ExpiresAt,
		},
	})
}

func deniedMessage(v domain.Verdict) string {
	switch {
	case len(v.MissingRoles) > 0 && len(v.MissingPermissions) > 0:
		return "The user does not hold the required roles and permissions."
	case len(v.MissingRoles) > 0:
		return "The user does not hold all the required roles."
	default:
		return "The user does not hold all the required permissions."
	}
}

// validateNames flags blank entries as "<field>.<i>", adding to fields.
func validateNames(field string, names []string, fields map[string]string) map[string]string {
	for i, n := range names {
		if strings.TrimSpace(n) != "" {
			continue
		}
		if fields == nil {
			fields = make(map[string]string)
		}
		key := fmt.Sprintf("%s.%d", field, i)
		fields[key] = "The " + key + " field must be a non-empty string."
	}
	return fields
}
