package domain

import "time"

// DefaultGuard is the guard name used when a permission or role omits one.
const DefaultGuard = "web"

type Role struct {
	ID        string
	Name      string
	GuardName string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Permission struct {
	ID        string
	Name      string
	GuardName string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Requirements is what a caller asks the verify endpoint to check.
type Requirements struct {
	Roles       []string
	Permissions []string
}

// Verdict is the outcome of checking Requirements against a user. Roles
// and Permissions are what the user holds; the Missing lists name the
// requirements that were not met.
type Verdict struct {
	Roles              []Role
	Permissions        []Permission
	MissingRoles       []string
	MissingPermissions []string
}

func (v Verdict) Authorized() bool {
	return len(v.MissingRoles) == 0 && len(v.MissingPermissions) == 0
}
