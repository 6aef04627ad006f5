package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories so that transactional and non-transactional code
// share the same shape. Nested transactions are not supported.
type Store interface {
	Users() Users
	Modules() Modules
	AccessTokens() AccessTokens
	Roles() Roles
	Permissions() Permissions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts a new user (id is provided by the caller via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser rewrites name, email, google_id and avatar and bumps updated_at.
	UpdateUser(ctx context.Context, u domain.User) error

	// DeleteUser cascades to role/permission assignments. Access tokens are
	// polymorphic and are removed by the caller.
	DeleteUser(ctx context.Context, id string) error

	// GetGoogleCredentials returns the credential columns exactly as stored.
	GetGoogleCredentials(ctx context.Context, userID string) (domain.GoogleCredentials, error)

	// SaveGoogleCredentials overwrites all three credential columns in one
	// statement so a refresh is never half-written.
	SaveGoogleCredentials(ctx context.Context, userID string, creds domain.GoogleCredentials) error

	ListUserRoles(ctx context.Context, userID string) ([]domain.Role, error)
	AssignRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error

	ListDirectPermissions(ctx context.Context, userID string) ([]domain.Permission, error)
	GivePermission(ctx context.Context, userID, permissionID string) error
	RevokePermission(ctx context.Context, userID, permissionID string) error

	// ListEffectivePermissions unions direct permissions with those granted
	// through roles, ordered by name.
	ListEffectivePermissions(ctx context.Context, userID string) ([]domain.Permission, error)

	// ListUsersWithPermission returns users holding the permission directly
	// or through a role.
	ListUsersWithPermission(ctx context.Context, permissionID string) ([]domain.User, error)
}

type Modules interface {
	GetModuleByID(ctx context.Context, id string) (domain.Module, error)
	GetModuleBySlug(ctx context.Context, slug string) (domain.Module, error)
	ListModules(ctx context.Context) ([]domain.Module, error)

	// UpsertModule inserts the module or updates name, description and
	// is_active of the existing row with the same slug. The stored row is
	// returned; its ID is the existing one on update.
	UpsertModule(ctx context.Context, m domain.Module) (domain.Module, error)

	SetModuleActive(ctx context.Context, id string, active bool) error

	// TouchModuleLastUsed sets last_used_at.
	TouchModuleLastUsed(ctx context.Context, id string, at time.Time) error
}

type AccessTokens interface {
	CreateAccessToken(ctx context.Context, t domain.AccessToken) error
	GetAccessTokenByID(ctx context.Context, id string) (domain.AccessToken, error)

	// GetAccessTokenByHash looks up a token by the hex SHA-256 of its secret.
	GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error)

	ListAccessTokensForPrincipal(ctx context.Context, kind domain.PrincipalType, principalID string) ([]domain.AccessToken, error)

	DeleteAccessToken(ctx context.Context, id string) error

	// DeleteAccessTokensForPrincipal removes every token of the principal.
	// When name is non-empty only tokens with that name are removed.
	DeleteAccessTokensForPrincipal(ctx context.Context, kind domain.PrincipalType, principalID, name string) (int64, error)

	// DeleteExpiredAccessTokens is housekeeping; tokens without expiry are kept.
	DeleteExpiredAccessTokens(ctx context.Context, now time.Time) (int64, error)
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)

	// CreateRole returns ErrAlreadyExists on duplicate name.
	CreateRole(ctx context.Context, r domain.Role) error
	UpdateRole(ctx context.Context, r domain.Role) error

	// DeleteRole detaches users and permissions through FK cascades.
	DeleteRole(ctx context.Context, id string) error

	ListRolePermissions(ctx context.Context, roleID string) ([]domain.Permission, error)
	AssignPermission(ctx context.Context, roleID, permissionID string) error
	RevokePermission(ctx context.Context, roleID, permissionID string) error
}

type Permissions interface {
	GetPermissionByID(ctx context.Context, id string) (domain.Permission, error)
	GetPermissionByName(ctx context.Context, name, guard string) (domain.Permission, error)
	ListPermissions(ctx context.Context) ([]domain.Permission, error)

	// CreatePermission returns ErrAlreadyExists on duplicate (name, guard_name).
	CreatePermission(ctx context.Context, p domain.Permission) error
	UpdatePermission(ctx context.Context, p domain.Permission) error
	DeletePermission(ctx context.Context, id string) error

	// FirstOrCreatePermission returns the existing permission with the same
	// (name, guard_name) or inserts p. created reports which happened.
	FirstOrCreatePermission(ctx context.Context, p domain.Permission) (perm domain.Permission, created bool, err error)
}
