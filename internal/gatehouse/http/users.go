package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
	"github.com/aussiebroadwan/gatehouse/pkg/gatehousesdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// UsersHandler serves user management and the user side of the role and
// permission pivots.
type UsersHandler struct {
	RBAC *service.RBACService
}

// HandleList godoc
//
//	@Summary	List users
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}		gatehousesdk.User
//	@Failure	401	{object}	gatehousesdk.AuthErrorResponse
//	@Router		/v1/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.RBAC.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "User")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapAll(users, toUser))
}

// HandleCreate godoc
//
//	@Summary	Create a user
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		gatehousesdk.UserRequest	true	"Name and email"
//	@Success	201		{object}	gatehousesdk.User
//	@Failure	409		{object}	gatehousesdk.ErrorResponse	"email already taken"
//	@Failure	422		{object}	gatehousesdk.ValidationErrorResponse
//	@Router		/v1/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req gatehousesdk.UserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.RBAC.CreateUser(r.Context(), service.UserInput{Name: req.Name, Email: req.Email})
	if err != nil {
		writeServiceError(w, r, err, "User")
		return
	}

	slogx.FromContext(r.Context()).Info("user created", "user_id", u.ID)
	httpx.WriteJSON(w, http.StatusCreated, toUser(u))
}

// HandleDropdown godoc
//
//	@Summary	Users as select options
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	gatehousesdk.DropdownOption
//	@Router		/v1/users/dropdown [get].
func (h *UsersHandler) HandleDropdown(w http.ResponseWriter, r *http.Request) {
	users, err := h.RBAC.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "User")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapAll(users, func(u domain.User) gatehousesdk.DropdownOption {
		return gatehousesdk.DropdownOption{Value: u.ID, Label: u.Name}
	}))
}

// HandleShow godoc
//
//	@Summary	Show a user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	gatehousesdk.User
//	@Failure	404	{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/users/{id} [get].
func (h *UsersHandler) HandleShow(w http.ResponseWriter, r *http.Request) {
	u, err := h.RBAC.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "User")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUser(u))
}

// HandleUpdate godoc
//
//	@Summary	Update a user
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string						true	"User ID"
//	@Param		request	body		gatehousesdk.UserRequest	true	"Name and email"
//	@Success	200		{object}	gatehousesdk.User
//	@Failure	404		{object}	gatehousesdk.ErrorResponse
//	@Failure	409		{object}	gatehousesdk.ErrorResponse
//	@Failure	422		{object}	gatehousesdk.ValidationErrorResponse
//	@Router		/v1/users/{id} [put].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req gatehousesdk.UserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.RBAC.UpdateUser(r.Context(), r.PathValue("id"), service.UserInput{Name: req.Name, Email: req.Email})
	if err != nil {
		writeServiceError(w, r, err, "User")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUser(u))
}

// HandleDelete godoc
//
//	@Summary		Delete a user
//	@Description	Deletes the user and revokes every token it holds.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	gatehousesdk.MessageResponse
//	@Failure		404	{object}	gatehousesdk.ErrorResponse
//	@Router			/v1/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.RBAC.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "User")
		return
	}

	slogx.FromContext(r.Context()).Info("user deleted", "user_id", id)
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.MessageResponse{Message: "User deleted"})
}

// HandleRoles godoc
//
//	@Summary	Roles held by a user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	gatehousesdk.UserRolesResponse
//	@Failure	404	{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/users/{id}/roles [get].
func (h *UsersHandler) HandleRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.RBAC.UserRoles(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "User")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.UserRolesResponse{Roles: mapAll(roles, toRole)})
}

// HandleAssignRole godoc
//
//	@Summary	Assign a role to a user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string	true	"User ID"
//	@Param		roleId	path		string	true	"Role ID"
//	@Success	200		{object}	gatehousesdk.MessageResponse
//	@Failure	404		{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/users/{id}/roles/{roleId} [post].
func (h *UsersHandler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	if err := h.RBAC.AssignRole(r.Context(), r.PathValue("id"), r.PathValue("roleId")); err != nil {
		writeServiceError(w, r, err, "User or role")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.MessageResponse{Message: "Role assigned"})
}

// HandleRemoveRole godoc
//
//	@Summary	Remove a role from a user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string	true	"User ID"
//	@Param		roleId	path		string	true	"Role ID"
//	@Success	200		{object}	gatehousesdk.MessageResponse
//	@Failure	404		{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/users/{id}/roles/{roleId} [delete].
func (h *UsersHandler) HandleRemoveRole(w http.ResponseWriter, r *http.Request) {
	if err := h.RBAC.RemoveRole(r.Context(), r.PathValue("id"), r.PathValue("roleId")); err != nil {
		writeServiceError(w, r, err, "User or role")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.MessageResponse{Message: "Role removed"})
}

// HandlePermissions godoc
//
//	@Summary		Effective permissions of a user
//	@Description	Direct permissions plus those granted through roles.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	gatehousesdk.UserPermissionsResponse
//	@Failure		404	{object}	gatehousesdk.ErrorResponse
//	@Router			/v1/users/{id}/permissions [get].
func (h *UsersHandler) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.RBAC.UserPermissions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "User")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.UserPermissionsResponse{Permissions: mapAll(perms, toPermission)})
}

// HandleGivePermission godoc
//
//	@Summary	Give a user a direct permission
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id				path		string	true	"User ID"
//	@Param		permissionId	path		string	true	"Permission ID"
//	@Success	200				{object}	gatehousesdk.MessageResponse
//	@Failure	404				{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/users/{id}/permissions/{permissionId} [post].
func (h *UsersHandler) HandleGivePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.RBAC.GivePermission(r.Context(), r.PathValue("id"), r.PathValue("permissionId")); err != nil {
		writeServiceError(w, r, err, "User or permission")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.MessageResponse{Message: "Permission granted"})
}

// HandleRevokePermission godoc
//
//	@Summary	Revoke a direct permission from a user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id				path		string	true	"User ID"
//	@Param		permissionId	path		string	true	"Permission ID"
//	@Success	200				{object}	gatehousesdk.MessageResponse
//	@Failure	404				{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/users/{id}/permissions/{permissionId} [delete].
func (h *UsersHandler) HandleRevokePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.RBAC.RevokeUserPermission(r.Context(), r.PathValue("id"), r.PathValue("permissionId")); err != nil {
		writeServiceError(w, r, err, "User or permission")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.MessageResponse{Message: "Permission revoked"})
}
