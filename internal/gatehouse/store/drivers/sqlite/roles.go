package sqlite

import (
	"context"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
)

type rolesRepo struct {
	db dbtx
}

const roleColumns = `r.id, r.name, r.guard_name, r.created_at, r.updated_at`

func scanRole(row rowScanner) (domain.Role, error) {
	var r domain.Role
	if err := row.Scan(&r.ID, &r.Name, &r.GuardName, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.Role{}, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

func queryRoles(ctx context.Context, db dbtx, query string, args ...any) ([]domain.Role, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.id = ?`, id))
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.name = ?`, name))
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func (r *rolesRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return queryRoles(ctx, r.db, `SELECT `+roleColumns+` FROM roles r ORDER BY r.name`)
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	ts := now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, guard_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		role.ID, role.Name, guardOrDefault(role.GuardName), ts, ts,
	)
	return mapConstraint(err)
}

func (r *rolesRepo) UpdateRole(ctx context.Context, role domain.Role) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE roles SET name = ?, guard_name = ?, updated_at = ? WHERE id = ?`,
		role.Name, guardOrDefault(role.GuardName), now(), role.ID,
	))
}

func (r *rolesRepo) DeleteRole(ctx context.Context, id string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, id))
}

func (r *rolesRepo) ListRolePermissions(ctx context.Context, roleID string) ([]domain.Permission, error) {
	return queryPermissions(ctx, r.db, `
		SELECT `+permissionColumns+`
		FROM permissions p JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ?
		ORDER BY p.name`, roleID)
}

func (r *rolesRepo) AssignPermission(ctx context.Context, roleID, permissionID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?) ON CONFLICT DO NOTHING`, roleID, permissionID)
	return mapForeignKey(err)
}

func (r *rolesRepo) RevokePermission(ctx context.Context, roleID, permissionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = ? AND permission_id = ?`, roleID, permissionID)
	return err
}

func guardOrDefault(g string) string {
	if g == "" {
		return domain.DefaultGuard
	}
	return g
}
