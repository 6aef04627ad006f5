/*
Package gatehousesdk is a small client for the gatehouse service and the
wire types its HTTP API speaks.

	c := gatehousesdk.NewClient("https://gatehouse.example.com", token)

	// Check a user token and its rights
	v, err := c.VerifyToken(ctx, gatehousesdk.VerifyRequest{Roles: []string{"admin"}})

	// Register permissions from a module
	perms, err := c.WithToken(moduleSecret).BatchCreatePermissions(ctx, []gatehousesdk.PermissionRequest{
		{Name: "reports.view"},
	})

Every non-success answer is an *APIError. Calendar calls return the
provider's status and body in a ProviderResponse instead, since provider
errors are meaningful to the caller.
*/
package gatehousesdk
