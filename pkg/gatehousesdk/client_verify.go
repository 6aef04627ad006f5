package gatehousesdk

import (
	"context"
	"net/http"
)

// VerifyToken checks the client's token and, optionally, that its user
// holds the given roles and permissions. A denial is an *APIError with
// MissingRoles and MissingPermissions set.
func (c *Client) VerifyToken(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/auth/token/verify", req, true)
	if err != nil {
		return nil, err
	}

	var out VerifyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
