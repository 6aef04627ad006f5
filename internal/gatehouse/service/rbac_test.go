package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store"
)

func TestRBAC_UserCRUD(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := &TokenService{Store: st}
	svc := &RBACService{Store: st, Tokens: tokens}

	_, err := svc.CreateUser(ctx, UserInput{Name: "", Email: "not-an-email"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "name")
	require.Contains(t, ve.Fields, "email")

	u, err := svc.CreateUser(ctx, UserInput{Name: " Ada ", Email: "ada@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Ada", u.Name)

	_, err = svc.CreateUser(ctx, UserInput{Name: "Other", Email: "ada@example.com"})
	require.ErrorIs(t, err, ErrConflict)

	u, err = svc.UpdateUser(ctx, u.ID, UserInput{Name: "Ada King", Email: "ada@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Ada King", u.Name)

	_, err = svc.UpdateUser(ctx, "missing", UserInput{Name: "x", Email: "x@example.com"})
	require.ErrorIs(t, err, ErrNotFound)

	issued, err := tokens.IssueUserToken(ctx, st.AccessTokens(), u.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, u.ID))
	require.ErrorIs(t, svc.DeleteUser(ctx, u.ID), ErrNotFound)

	_, err = svc.GetUser(ctx, u.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = st.AccessTokens().GetAccessTokenByID(ctx, issued.Token.ID)
	require.Error(t, err, "deleting a user revokes its tokens")
}

func TestRBAC_RolesAndPermissions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &RBACService{Store: st}

	_, err := svc.CreateRole(ctx, RoleInput{Name: strings.Repeat("r", 256)})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	admin, err := svc.CreateRole(ctx, RoleInput{Name: "admin"})
	require.NoError(t, err)
	require.Equal(t, domain.DefaultGuard, admin.GuardName)

	_, err = svc.CreateRole(ctx, RoleInput{Name: "admin"})
	require.ErrorIs(t, err, ErrConflict)

	edit, err := svc.CreatePermission(ctx, PermissionInput{Name: "posts.edit"})
	require.NoError(t, err)
	view, err := svc.CreatePermission(ctx, PermissionInput{Name: "posts.view"})
	require.NoError(t, err)

	require.NoError(t, svc.AssignPermissionToRole(ctx, admin.ID, edit.ID))
	require.NoError(t, svc.AssignPermissionToRole(ctx, admin.ID, edit.ID), "assigning twice is harmless")
	require.ErrorIs(t, svc.AssignPermissionToRole(ctx, admin.ID, "missing"), ErrNotFound)

	perms, err := svc.RolePermissions(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)

	u, err := svc.CreateUser(ctx, UserInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, u.ID, admin.ID))
	require.NoError(t, svc.GivePermission(ctx, u.ID, view.ID))
	require.ErrorIs(t, svc.AssignRole(ctx, "missing", admin.ID), ErrNotFound)

	roles, err := svc.UserRoles(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)

	effective, err := svc.UserPermissions(ctx, u.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(effective))
	for _, p := range effective {
		names = append(names, p.Name)
	}
	require.ElementsMatch(t, []string{"posts.edit", "posts.view"}, names)

	holders, err := svc.UsersWithPermission(ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	require.Equal(t, u.ID, holders[0].ID)

	_, err = svc.UsersWithPermission(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	renamed, err := svc.UpdateRole(ctx, admin.ID, RoleInput{Name: "administrator"})
	require.NoError(t, err)
	require.Equal(t, "administrator", renamed.Name)
	require.Equal(t, domain.DefaultGuard, renamed.GuardName)

	require.NoError(t, svc.RevokePermissionFromRole(ctx, admin.ID, edit.ID))
	require.NoError(t, svc.RemoveRole(ctx, u.ID, admin.ID))
	require.NoError(t, svc.RevokeUserPermission(ctx, u.ID, view.ID))

	effective, err = svc.UserPermissions(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, effective)

	require.NoError(t, svc.DeleteRole(ctx, admin.ID))
	require.ErrorIs(t, svc.DeleteRole(ctx, admin.ID), ErrNotFound)
	require.NoError(t, svc.DeletePermission(ctx, edit.ID))
	require.ErrorIs(t, svc.DeletePermission(ctx, edit.ID), ErrNotFound)
}

func TestRBAC_Verify(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &RBACService{Store: st}

	u, err := svc.CreateUser(ctx, UserInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	editor, err := svc.CreateRole(ctx, RoleInput{Name: "editor"})
	require.NoError(t, err)
	publish, err := svc.CreatePermission(ctx, PermissionInput{Name: "posts.publish"})
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(ctx, u.ID, editor.ID))
	require.NoError(t, svc.AssignPermissionToRole(ctx, editor.ID, publish.ID))

	v, err := svc.Verify(ctx, u.ID, domain.Requirements{})
	require.NoError(t, err)
	require.True(t, v.Authorized())
	require.NotNil(t, v.MissingRoles)
	require.Empty(t, v.MissingRoles)

	v, err = svc.Verify(ctx, u.ID, domain.Requirements{
		Roles:       []string{"editor"},
		Permissions: []string{"posts.publish"},
	})
	require.NoError(t, err)
	require.True(t, v.Authorized(), "role-granted permissions count")
	require.Len(t, v.Roles, 1)
	require.Len(t, v.Permissions, 1)

	v, err = svc.Verify(ctx, u.ID, domain.Requirements{
		Roles:       []string{"editor", "admin", "admin"},
		Permissions: []string{"posts.delete", "posts.publish"},
	})
	require.NoError(t, err)
	require.False(t, v.Authorized())
	require.Equal(t, []string{"admin"}, v.MissingRoles)
	require.Equal(t, []string{"posts.delete"}, v.MissingPermissions)
}

func TestRBAC_BatchCreatePermissions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &RBACService{Store: st}

	existing, err := svc.CreatePermission(ctx, PermissionInput{Name: "reports.view"})
	require.NoError(t, err)

	res, err := svc.BatchCreatePermissions(ctx, []PermissionInput{
		{Name: "reports.view"},
		{Name: " reports.export "},
		{Name: "reports.export", GuardName: "api"},
	})
	require.NoError(t, err)
	require.Len(t, res, 3)

	require.False(t, res[0].Created)
	require.Equal(t, existing.ID, res[0].Permission.ID)
	require.True(t, res[1].Created)
	require.Equal(t, "reports.export", res[1].Permission.Name)
	require.True(t, res[2].Created)
	require.Equal(t, "api", res[2].Permission.GuardName)

	// Running the same batch again creates nothing.
	again, err := svc.BatchCreatePermissions(ctx, []PermissionInput{{Name: "reports.view"}, {Name: "reports.export"}})
	require.NoError(t, err)
	for _, r := range again {
		require.False(t, r.Created)
	}

	_, err = svc.BatchCreatePermissions(ctx, []PermissionInput{{Name: "ok.name"}, {Name: ""}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "permissions.1.name")

	_, err = st.Permissions().GetPermissionByName(ctx, "ok.name", domain.DefaultGuard)
	require.ErrorIs(t, err, store.ErrNotFound, "an invalid batch writes nothing")

	_, err = svc.BatchCreatePermissions(ctx, []PermissionInput{{Name: "dup"}, {Name: "dup", GuardName: "web"}})
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Fields, "permissions.1.name")

	_, err = svc.BatchCreatePermissions(ctx, nil)
	require.ErrorAs(t, err, &ve)
}
