package gatehousesdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeValidationFailed   = "validation_failed"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeConflict           = "conflict"
	ErrorCodeServerError        = "server_error"
	ErrorCodeGoogleNotConnected = "google_not_connected"
	ErrorCodeInvalidState       = "invalid_state"
	ErrorCodeLoginFailed        = "login_failed"
)

// APIError is any non-success answer from the service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string

	// Fields is set for validation failures.
	Fields map[string]string

	// Missing* are set when token verification is denied.
	MissingRoles       []string
	MissingPermissions []string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("gatehouse: %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("gatehouse: %d %s", e.StatusCode, e.Code)
}

// Unauthorized reports a refused bearer token.
func (e *APIError) Unauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

// Forbidden reports a valid token without the required rights.
func (e *APIError) Forbidden() bool { return e.StatusCode == http.StatusForbidden }

// parseErrorResponse folds the service's error body shapes into an APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var raw struct {
		Error              string            `json:"error"`
		ErrorDescription   string            `json:"error_description"`
		Fields             map[string]string `json:"fields"`
		MissingRoles       []string          `json:"missing_roles"`
		MissingPermissions []string          `json:"missing_permissions"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}

	if err := json.Unmarshal(body, &raw); err != nil {
		apiErr.Code = http.StatusText(resp.StatusCode)
		apiErr.Description = string(body)
		return apiErr
	}

	apiErr.Code = raw.Error
	apiErr.Description = raw.ErrorDescription
	apiErr.Fields = raw.Fields
	apiErr.MissingRoles = raw.MissingRoles
	apiErr.MissingPermissions = raw.MissingPermissions
	return apiErr
}
