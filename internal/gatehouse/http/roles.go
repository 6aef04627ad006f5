package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
	"github.com/aussiebroadwan/gatehouse/pkg/gatehousesdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

type RolesHandler struct {
	RBAC *service.RBACService
}

// HandleList godoc
//
//	@Summary	List roles
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	gatehousesdk.Role
//	@Router		/v1/roles [get].
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.RBAC.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Role")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapAll(roles, toRole))
}

// HandleCreate godoc
//
//	@Summary	Create a role
//	@Tags		Roles
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		gatehousesdk.RoleRequest	true	"Role name and optional guard"
//	@Success	201		{object}	gatehousesdk.Role
//	@Failure	409		{object}	gatehousesdk.ErrorResponse	"name already taken"
//	@Failure	422		{object}	gatehousesdk.ValidationErrorResponse
//	@Router		/v1/roles [post].
func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req gatehousesdk.RoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	role, err := h.RBAC.CreateRole(r.Context(), service.RoleInput{Name: req.Name, GuardName: req.GuardName})
	if err != nil {
		writeServiceError(w, r, err, "Role")
		return
	}

	slogx.FromContext(r.Context()).Info("role created", "role_id", role.ID, "name", role.Name)
	httpx.WriteJSON(w, http.StatusCreated, toRole(role))
}

// HandleDropdown godoc
//
//	@Summary	Roles as select options
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	gatehousesdk.DropdownOption
//	@Router		/v1/roles/dropdown [get].
func (h *RolesHandler) HandleDropdown(w http.ResponseWriter, r *http.Request) {
	roles, err := h.RBAC.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Role")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapAll(roles, func(role domain.Role) gatehousesdk.DropdownOption {
		return gatehousesdk.DropdownOption{Value: role.ID, Label: role.Name}
	}))
}

// HandleShow godoc
//
//	@Summary	Show a role
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Role ID"
//	@Success	200	{object}	gatehousesdk.Role
//	@Failure	404	{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/roles/{id} [get].
func (h *RolesHandler) HandleShow(w http.ResponseWriter, r *http.Request) {
	role, err := h.RBAC.GetRole(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Role")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRole(role))
}

// HandleUpdate godoc
//
//	@Summary	Update a role
//	@Tags		Roles
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string						true	"Role ID"
//	@Param		request	body		gatehousesdk.RoleRequest	true	"Role name and optional guard"
//	@Success	200		{object}	gatehousesdk.Role
//	@Failure	404		{object}	gatehousesdk.ErrorResponse
//	@Failure	409		{object}	gatehousesdk.ErrorResponse
//	@Failure	422		{object}	gatehousesdk.ValidationErrorResponse
//	@Router		/v1/roles/{id} [put].
func (h *RolesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req gatehousesdk.RoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	role, err := h.RBAC.UpdateRole(r.Context(), r.PathValue("id"), service.RoleInput{Name: req.Name, GuardName: req.GuardName})
	if err != nil {
		writeServiceError(w, r, err, "Role")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRole(role))
}

// HandleDelete godoc
//
//	@Summary		Delete a role
//	@Description	Deletes the role and detaches it from users and permissions.
//	@Tags			Roles
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Role ID"
//	@Success		200	{object}	gatehousesdk.MessageResponse
//	@Failure		404	{object}	gatehousesdk.ErrorResponse
//	@Router			/v1/roles/{id} [delete].
func (h *RolesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.RBAC.DeleteRole(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "Role")
		return
	}

	slogx.FromContext(r.Context()).Info("role deleted", "role_id", id)
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.MessageResponse{Message: "Role deleted"})
}

// HandlePermissions godoc
//
//	@Summary	Permissions attached to a role
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Role ID"
//	@Success	200	{object}	gatehousesdk.UserPermissionsResponse
//	@Failure	404	{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/roles/{id}/permissions [get].
func (h *RolesHandler) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.RBAC.RolePermissions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Role")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.UserPermissionsResponse{Permissions: mapAll(perms, toPermission)})
}

// HandleAssignPermission godoc
//
//	@Summary	Attach a permission to a role
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id				path		string	true	"Role ID"
//	@Param		permissionId	path		string	true	"Permission ID"
//	@Success	200				{object}	gatehousesdk.MessageResponse
//	@Failure	404				{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/roles/{id}/permissions/{permissionId} [post].
func (h *RolesHandler) HandleAssignPermission(w http.ResponseWriter, r *http.Request) {
	if err := h.RBAC.AssignPermissionToRole(r.Context(), r.PathValue("id"), r.PathValue("permissionId")); err != nil {
		writeServiceError(w, r, err, "Role or permission")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.MessageResponse{Message: "Permission assigned"})
}

// HandleRevokePermission godoc
//
//	@Summary	Detach a permission from a role
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id				path		string	true	"Role ID"
//	@Param		permissionId	path		string	true	"Permission ID"
//	@Success	200				{object}	gatehousesdk.MessageResponse
//	@Failure	404				{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/roles/{id}/permissions/{permissionId} [delete].
func (h *RolesHandler) HandleRevokePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.RBAC.RevokePermissionFromRole(r.Context(), r.PathValue("id"), r.PathValue("permissionId")); err != nil {
		writeServiceError(w, r, err, "Role or permission")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.MessageResponse{Message: "Permission revoked"})
}
