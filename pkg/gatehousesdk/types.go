package gatehousesdk

import (
	"encoding/json"
	"time"
)

// ============================================================================
// Error bodies
// ============================================================================

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// AuthErrorResponse is returned when the bearer token is refused.
type AuthErrorResponse struct {
	Authorized bool   `json:"authorized"`
	Error      string `json:"error"`
}

// ValidationErrorResponse is returned with 422 when a request body fails
// validation. Fields maps a dotted field path to its message.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// ============================================================================
// Health
// ============================================================================

type HealthChecks struct {
	Database string `json:"database"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// ============================================================================
// Token verification
// ============================================================================

// VerifyRequest lists the role and permission names the caller must hold.
// Both are optional; an empty request only checks the token.
type VerifyRequest struct {
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

type VerifiedUser struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	RolesList       []string  `json:"roles_list"`
	PermissionsList []string  `json:"permissions_list"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type VerifiedToken struct {
	Abilities []string   `json:"abilities"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type VerifyResponse struct {
	Authorized bool          `json:"authorized"`
	User       VerifiedUser  `json:"user"`
	Token      VerifiedToken `json:"token"`
}

// VerifyDeniedResponse is the 403 body when requirements are not met.
type VerifyDeniedResponse struct {
	Authorized         bool     `json:"authorized"`
	Error              string   `json:"error"`
	MissingRoles       []string `json:"missing_roles"`
	MissingPermissions []string `json:"missing_permissions"`
}

// ============================================================================
// Users, roles and permissions
// ============================================================================

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	GoogleID  *string   `json:"google_id,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Role struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	GuardName string    `json:"guard_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RoleRequest struct {
	Name      string `json:"name"`
	GuardName string `json:"guard_name,omitempty"`
}

type Permission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	GuardName string    `json:"guard_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PermissionRequest struct {
	Name      string `json:"name"`
	GuardName string `json:"guard_name,omitempty"`
}

// DropdownOption is a compact id/name pair for select inputs.
type DropdownOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type BatchPermissionsRequest struct {
	Permissions []PermissionRequest `json:"permissions"`
}

// BatchPermission is one entry of a batch create; Created is false when the
// permission already existed.
type BatchPermission struct {
	Permission
	Created bool `json:"created"`
}

type UserRolesResponse struct {
	Roles []Role `json:"roles"`
}

type UserPermissionsResponse struct {
	Permissions []Permission `json:"permissions"`
}

type PermissionUsersResponse struct {
	Users []User `json:"users"`
}

// MessageResponse acknowledges deletes and pivot changes.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Calendar
// ============================================================================

// ProxyRequest forwards a call to the calendar API. Query values may be
// strings, numbers, booleans or arrays of those.
type ProxyRequest struct {
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Query  map[string]any  `json:"query,omitempty"`
	JSON   json.RawMessage `json:"json,omitempty"`
}

type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type Attendee struct {
	Email string `json:"email"`
}

type MeetingRequest struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Start       *EventTime `json:"start"`
	End         *EventTime `json:"end"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

// MeetingErrorResponse wraps a provider refusal; Details is the provider's
// own error body.
type MeetingErrorResponse struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

// ProviderResponse is a passed-through provider answer.
type ProviderResponse struct {
	StatusCode int
	Body       json.RawMessage
}
