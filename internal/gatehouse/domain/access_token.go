package domain

import (
	"slices"
	"time"
)

// AbilityAll grants every ability.
const AbilityAll = "*"

// AbilityPermissionsBatch lets a module create permissions in bulk.
const AbilityPermissionsBatch = "permissions:batch"

// AccessToken is a record in the token registry. The raw secret is never
// stored, only TokenHash.
type AccessToken struct {
	ID            string
	PrincipalType PrincipalType
	PrincipalID   string
	Name          string
	TokenHash     string
	Abilities     []string // Parsed from space-delimited storage
	ExpiresAt     *time.Time
	LastUsedAt    *time.Time
	CreatedAt     time.Time
}

// Valid reports whether the token is usable at now. A nil expiry never
// expires.
func (t AccessToken) Valid(now time.Time) bool {
	return t.ExpiresAt == nil || now.Before(*t.ExpiresAt)
}

// Can reports whether the token carries ability, directly or through the
// wildcard. An empty ability set grants nothing, matching Sanctum's can().
func (t AccessToken) Can(ability string) bool {
	return slices.Contains(t.Abilities, AbilityAll) || slices.Contains(t.Abilities, ability)
}
