package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store"
	"github.com/aussiebroadwan/gatehouse/pkg/idx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

const maxNameLen = 255

// RBACService manages users, roles and permissions and answers
// "does this user hold X" questions for other services.
type RBACService struct {
	Store store.Store

	// Tokens revokes a deleted user's bearer tokens.
	Tokens *TokenService
	Now    func() time.Time
}

func (s *RBACService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrConflict
	default:
		return err
	}
}

func validateName(ve *ValidationError, field, v string) {
	switch {
	case strings.TrimSpace(v) == "":
		ve.add(field, "The "+field+" field is required.")
	case utf8.RuneCountInString(v) > maxNameLen:
		ve.add(field, fmt.Sprintf("The %s may not be greater than %d characters.", field, maxNameLen))
	}
}

/* Users */

type UserInput struct {
	Name  string
	Email string
}

func (in UserInput) validate() error {
	var ve ValidationError
	validateName(&ve, "name", in.Name)
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		ve.add("email", "The email must be a valid email address.")
	}
	return ve.orNil()
}

func (s *RBACService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

func (s *RBACService) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	return u, mapStoreErr(err)
}

func (s *RBACService) CreateUser(ctx context.Context, in UserInput) (domain.User, error) {
	in.Name, in.Email = strings.TrimSpace(in.Name), strings.TrimSpace(in.Email)
	if err := in.validate(); err != nil {
		return domain.User{}, err
	}

	u := domain.User{ID: idx.NewAt(s.now()).String(), Name: in.Name, Email: in.Email}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, mapStoreErr(err)
	}
	return s.GetUser(ctx, u.ID)
}

func (s *RBACService) UpdateUser(ctx context.Context, id string, in UserInput) (domain.User, error) {
	in.Name, in.Email = strings.TrimSpace(in.Name), strings.TrimSpace(in.Email)
	if err := in.validate(); err != nil {
		return domain.User{}, err
	}

	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapStoreErr(err)
	}
	u.Name, u.Email = in.Name, in.Email
	if err := s.Store.Users().UpdateUser(ctx, u); err != nil {
		return domain.User{}, mapStoreErr(err)
	}
	return s.GetUser(ctx, id)
}

// DeleteUser removes the user, its assignments and every bearer token it
// holds.
func (s *RBACService) DeleteUser(ctx context.Context, id string) error {
	return mapStoreErr(s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().DeleteUser(ctx, id); err != nil {
			return err
		}
		_, err := s.Tokens.RevokeAll(ctx, tx.AccessTokens(), domain.PrincipalUser, id)
		return err
	}))
}

func (s *RBACService) UserRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.Store.Users().ListUserRoles(ctx, userID)
}

// UserPermissions returns direct and role-granted permissions.
func (s *RBACService) UserPermissions(ctx context.Context, userID string) ([]domain.Permission, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.Store.Users().ListEffectivePermissions(ctx, userID)
}

func (s *RBACService) UsersWithPermission(ctx context.Context, permissionID string) ([]domain.User, error) {
	if _, err := s.GetPermission(ctx, permissionID); err != nil {
		return nil, err
	}
	return s.Store.Users().ListUsersWithPermission(ctx, permissionID)
}

func (s *RBACService) AssignRole(ctx context.Context, userID, roleID string) error {
	return mapStoreErr(s.Store.Users().AssignRole(ctx, userID, roleID))
}

func (s *RBACService) RemoveRole(ctx context.Context, userID, roleID string) error {
	return mapStoreErr(s.Store.Users().RemoveRole(ctx, userID, roleID))
}

func (s *RBACService) GivePermission(ctx context.Context, userID, permissionID string) error {
	return mapStoreErr(s.Store.Users().GivePermission(ctx, userID, permissionID))
}

func (s *RBACService) RevokeUserPermission(ctx context.Context, userID, permissionID string) error {
	return mapStoreErr(s.Store.Users().RevokePermission(ctx, userID, permissionID))
}

/* Roles */

type RoleInput struct {
	Name      string
	GuardName string
}

func (s *RBACService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().ListRoles(ctx)
}

func (s *RBACService) GetRole(ctx context.Context, id string) (domain.Role, error) {
	r, err := s.Store.Roles().GetRoleByID(ctx, id)
	return r, mapStoreErr(err)
}

func (s *RBACService) CreateRole(ctx context.Context, in RoleInput) (domain.Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	var ve ValidationError
	validateName(&ve, "name", in.Name)
	if err := ve.orNil(); err != nil {
		return domain.Role{}, err
	}

	r := domain.Role{ID: idx.NewAt(s.now()).String(), Name: in.Name, GuardName: in.GuardName}
	if err := s.Store.Roles().CreateRole(ctx, r); err != nil {
		return domain.Role{}, mapStoreErr(err)
	}
	return s.GetRole(ctx, r.ID)
}

func (s *RBACService) UpdateRole(ctx context.Context, id string, in RoleInput) (domain.Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	var ve ValidationError
	validateName(&ve, "name", in.Name)
	if err := ve.orNil(); err != nil {
		return domain.Role{}, err
	}

	r, err := s.GetRole(ctx, id)
	if err != nil {
		return domain.Role{}, err
	}
	r.Name = in.Name
	if in.GuardName != "" {
		r.GuardName = in.GuardName
	}
	if err := s.Store.Roles().UpdateRole(ctx, r); err != nil {
		return domain.Role{}, mapStoreErr(err)
	}
	return s.GetRole(ctx, id)
}

func (s *RBACService) DeleteRole(ctx context.Context, id string) error {
	return mapStoreErr(s.Store.Roles().DeleteRole(ctx, id))
}

func (s *RBACService) RolePermissions(ctx context.Context, roleID string) ([]domain.Permission, error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.Store.Roles().ListRolePermissions(ctx, roleID)
}

func (s *RBACService) AssignPermissionToRole(ctx context.Context, roleID, permissionID string) error {
	return mapStoreErr(s.Store.Roles().AssignPermission(ctx, roleID, permissionID))
}

func (s *RBACService) RevokePermissionFromRole(ctx context.Context, roleID, permissionID string) error {
	return mapStoreErr(s.Store.Roles().RevokePermission(ctx, roleID, permissionID))
}

/* Permissions */

type PermissionInput struct {
	Name      string `json:"name"`
	GuardName string `json:"guard_name,omitempty"`
}

func (s *RBACService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	return s.Store.Permissions().ListPermissions(ctx)
}

func (s *RBACService) GetPermission(ctx context.Context, id string) (domain.Permission, error) {
	p, err := s.Store.Permissions().GetPermissionByID(ctx, id)
	return p, mapStoreErr(err)
}

func (s *RBACService) CreatePermission(ctx context.Context, in PermissionInput) (domain.Permission, error) {
	in.Name = strings.TrimSpace(in.Name)
	var ve ValidationError
	validateName(&ve, "name", in.Name)
	if err := ve.orNil(); err != nil {
		return domain.Permission{}, err
	}

	p := domain.Permission{ID: idx.NewAt(s.now()).String(), Name: in.Name, GuardName: in.GuardName}
	if err := s.Store.Permissions().CreatePermission(ctx, p); err != nil {
		return domain.Permission{}, mapStoreErr(err)
	}
	return s.GetPermission(ctx, p.ID)
}

func (s *RBACService) UpdatePermission(ctx context.Context, id string, in PermissionInput) (domain.Permission, error) {
	in.Name = strings.TrimSpace(in.Name)
	var ve ValidationError
	validateName(&ve, "name", in.Name)
	if err := ve.orNil(); err != nil {
		return domain.Permission{}, err
	}

	p, err := s.GetPermission(ctx, id)
	if err != nil {
		return domain.Permission{}, err
	}
	p.Name = in.Name
	if in.GuardName != "" {
		p.GuardName = in.GuardName
	}
	if err := s.Store.Permissions().UpdatePermission(ctx, p); err != nil {
		return domain.Permission{}, mapStoreErr(err)
	}
	return s.GetPermission(ctx, id)
}

func (s *RBACService) DeletePermission(ctx context.Context, id string) error {
	return mapStoreErr(s.Store.Permissions().DeletePermission(ctx, id))
}

// BatchResult reports one entry of a batch create.
type BatchResult struct {
	Permission domain.Permission
	Created    bool
}

// BatchCreatePermissions first-or-creates every entry by (name, guard) in
// one transaction. The whole batch is validated before anything is written.
func (s *RBACService) BatchCreatePermissions(ctx context.Context, in []PermissionInput) ([]BatchResult, error) {
	var ve ValidationError
	if len(in) == 0 {
		ve.add("permissions", "The permissions field is required.")
	}
	seen := make(map[string]bool, len(in))
	for i := range in {
		in[i].Name = strings.TrimSpace(in[i].Name)
		field := fmt.Sprintf("permissions.%d.name", i)
		validateName(&ve, field, in[i].Name)

		key := in[i].Name + "\x00" + guardOrDefault(in[i].GuardName)
		if seen[key] {
			ve.add(field, "The "+field+" field has a duplicate value.")
		}
		seen[key] = true
	}
	if err := ve.orNil(); err != nil {
		return nil, err
	}

	now := s.now()
	results := make([]BatchResult, 0, len(in))

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, p := range in {
			perm, created, err := tx.Permissions().FirstOrCreatePermission(ctx, domain.Permission{
				ID:        idx.NewAt(now).String(),
				Name:      p.Name,
				GuardName: p.GuardName,
			})
			if err != nil {
				return err
			}
			results = append(results, BatchResult{Permission: perm, Created: created})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created := 0
	for _, r := range results {
		if r.Created {
			created++
		}
	}
	slogx.FromContext(ctx).Info("permission batch processed", slog.Int("requested", len(in)), slog.Int("created", created))
	return results, nil
}

/* Verification */

// Verify checks that the user holds every required role and permission.
// Permissions granted through roles count.
func (s *RBACService) Verify(ctx context.Context, userID string, req domain.Requirements) (domain.Verdict, error) {
	roles, err := s.Store.Users().ListUserRoles(ctx, userID)
	if err != nil {
		return domain.Verdict{}, err
	}
	perms, err := s.Store.Users().ListEffectivePermissions(ctx, userID)
	if err != nil {
		return domain.Verdict{}, err
	}

	haveRoles := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		haveRoles[r.Name] = struct{}{}
	}
	havePerms := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		havePerms[p.Name] = struct{}{}
	}

	return domain.Verdict{
		Roles:              roles,
		Permissions:        perms,
		MissingRoles:       missing(req.Roles, haveRoles),
		MissingPermissions: missing(req.Permissions, havePerms),
	}, nil
}

func missing(required []string, have map[string]struct{}) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(required))
	for _, r := range required {
		if _, ok := have[r]; ok {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func guardOrDefault(g string) string {
	if g = strings.TrimSpace(g); g == "" {
		return domain.DefaultGuard
	}
	return g
}
