package gatehousesdk

import (
	"context"
	"net/http"
	"net/url"
)

// BatchCreatePermissions first-or-creates permissions. It accepts user
// tokens and allow-listed module secrets.
func (c *Client) BatchCreatePermissions(ctx context.Context, perms []PermissionRequest) ([]BatchPermission, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/permissions/batch", BatchPermissionsRequest{Permissions: perms}, true)
	if err != nil {
		return nil, err
	}

	var out []BatchPermission
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPermissions(ctx context.Context) ([]Permission, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/permissions", nil, true)
	if err != nil {
		return nil, err
	}

	var out []Permission
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateRole(ctx context.Context, req RoleRequest) (*Role, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/roles", req, true)
	if err != nil {
		return nil, err
	}

	var out Role
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/users", nil, true)
	if err != nil {
		return nil, err
	}

	var out []User
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignRole attaches a role to a user.
func (c *Client) AssignRole(ctx context.Context, userID, roleID string) error {
	path := "/v1/users/" + url.PathEscape(userID) + "/roles/" + url.PathEscape(roleID)
	resp, err := c.do(ctx, http.MethodPost, path, nil, true)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// AssignPermissionToRole attaches a permission to a role.
func (c *Client) AssignPermissionToRole(ctx context.Context, roleID, permissionID string) error {
	path := "/v1/roles/" + url.PathEscape(roleID) + "/permissions/" + url.PathEscape(permissionID)
	resp, err := c.do(ctx, http.MethodPost, path, nil, true)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}
