package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
	"github.com/aussiebroadwan/gatehouse/pkg/gatehousesdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

type PermissionsHandler struct {
	RBAC *service.RBACService
}

// HandleList godoc
//
//	@Summary	List permissions
//	@Tags		Permissions
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	gatehousesdk.Permission
//	@Router		/v1/permissions [get].
func (h *PermissionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	perms, err := h.RBAC.ListPermissions(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Permission")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapAll(perms, toPermission))
}

// HandleCreate godoc
//
//	@Summary	Create a permission
//	@Tags		Permissions
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		gatehousesdk.PermissionRequest	true	"Permission name and optional guard"
//	@Success	201		{object}	gatehousesdk.Permission
//	@Failure	409		{object}	gatehousesdk.ErrorResponse	"name already taken for the guard"
//	@Failure	422		{object}	gatehousesdk.ValidationErrorResponse
//	@Router		/v1/permissions [post].
func (h *PermissionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req gatehousesdk.PermissionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.RBAC.CreatePermission(r.Context(), service.PermissionInput{Name: req.Name, GuardName: req.GuardName})
	if err != nil {
		writeServiceError(w, r, err, "Permission")
		return
	}

	slogx.FromContext(r.Context()).Info("permission created", "permission_id", p.ID, "name", p.Name)
	httpx.WriteJSON(w, http.StatusCreated, toPermission(p))
}

// HandleBatch godoc
//
//	@Summary		Batch create permissions
//	@Description	First-or-creates every permission by (name, guard_name); guard defaults to "web".
//	@Description	Open to users and to allow-listed modules whose token carries permissions:batch.
//	@Description	The batch is validated as a whole; nothing is written when any entry is invalid.
//	@Tags			Permissions
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		gatehousesdk.BatchPermissionsRequest	true	"Permissions to ensure"
//	@Success		201		{array}		gatehousesdk.BatchPermission
//	@Failure		401		{object}	gatehousesdk.AuthErrorResponse
//	@Failure		403		{object}	gatehousesdk.AuthErrorResponse	"module inactive, not allowed or missing ability"
//	@Failure		422		{object}	gatehousesdk.ValidationErrorResponse
//	@Router			/v1/permissions/batch [post].
func (h *PermissionsHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var req gatehousesdk.BatchPermissionsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := make([]service.PermissionInput, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		in = append(in, service.PermissionInput{Name: p.Name, GuardName: p.GuardName})
	}

	results, err := h.RBAC.BatchCreatePermissions(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err, "Permission")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, mapAll(results, func(res service.BatchResult) gatehousesdk.BatchPermission {
		return gatehousesdk.BatchPermission{Permission: toPermission(res.Permission), Created: res.Created}
	}))
}

// HandleDropdown godoc
//
//	@Summary	Permissions as select options
//	@Tags		Permissions
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	gatehousesdk.DropdownOption
//	@Router		/v1/permissions/dropdown [get].
func (h *PermissionsHandler) HandleDropdown(w http.ResponseWriter, r *http.Request) {
	perms, err := h.RBAC.ListPermissions(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Permission")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapAll(perms, func(p domain.Permission) gatehousesdk.DropdownOption {
		return gatehousesdk.DropdownOption{Value: p.ID, Label: p.Name}
	}))
}

// HandleShow godoc
//
//	@Summary	Show a permission
//	@Tags		Permissions
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Permission ID"
//	@Success	200	{object}	gatehousesdk.Permission
//	@Failure	404	{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/permissions/{id} [get].
func (h *PermissionsHandler) HandleShow(w http.ResponseWriter, r *http.Request) {
	p, err := h.RBAC.GetPermission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Permission")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPermission(p))
}

// HandleUpdate godoc
//
//	@Summary	Update a permission
//	@Tags		Permissions
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string							true	"Permission ID"
//	@Param		request	body		gatehousesdk.PermissionRequest	true	"Permission name and optional guard"
//	@Success	200		{object}	gatehousesdk.Permission
//	@Failure	404		{object}	gatehousesdk.ErrorResponse
//	@Failure	409		{object}	gatehousesdk.ErrorResponse
//	@Failure	422		{object}	gatehousesdk.ValidationErrorResponse
//	@Router		/v1/permissions/{id} [put].
func (h *PermissionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req gatehousesdk.PermissionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.RBAC.UpdatePermission(r.Context(), r.PathValue("id"), service.PermissionInput{Name: req.Name, GuardName: req.GuardName})
	if err != nil {
		writeServiceError(w, r, err, "Permission")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPermission(p))
}

// HandleDelete godoc
//
//	@Summary	Delete a permission
//	@Tags		Permissions
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Permission ID"
//	@Success	200	{object}	gatehousesdk.MessageResponse
//	@Failure	404	{object}	gatehousesdk.ErrorResponse
//	@Router		/v1/permissions/{id} [delete].
func (h *PermissionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.RBAC.DeletePermission(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "Permission")
		return
	}

	slogx.FromContext(r.Context()).Info("permission deleted", "permission_id", id)
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.MessageResponse{Message: "Permission deleted"})
}

// HandleUsers godoc
//
//	@Summary		Users holding a permission
//	@Description	Users with the permission directly or through a role.
//	@Tags			Permissions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Permission ID"
//	@Success		200	{object}	gatehousesdk.PermissionUsersResponse
//	@Failure		404	{object}	gatehousesdk.ErrorResponse
//	@Router			/v1/permissions/{id}/users [get].
func (h *PermissionsHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.RBAC.UsersWithPermission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Permission")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, gatehousesdk.PermissionUsersResponse{Users: mapAll(users, toUser)})
}
