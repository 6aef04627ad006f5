package sqlite

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store"
)

type permissionsRepo struct {
	db dbtx
}

const permissionColumns = `p.id, p.name, p.guard_name, p.created_at, p.updated_at`

func scanPermission(row rowScanner) (domain.Permission, error) {
	var p domain.Permission
	if err := row.Scan(&p.ID, &p.Name, &p.GuardName, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Permission{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func queryPermissions(ctx context.Context, db dbtx, query string, args ...any) ([]domain.Permission, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *permissionsRepo) GetPermissionByID(ctx context.Context, id string) (domain.Permission, error) {
	p, err := scanPermission(r.db.QueryRowContext(ctx, `SELECT `+permissionColumns+` FROM permissions p WHERE p.id = ?`, id))
	if err != nil {
		return domain.Permission{}, mapNotFound(err)
	}
	return p, nil
}

func (r *permissionsRepo) GetPermissionByName(ctx context.Context, name, guard string) (domain.Permission, error) {
	p, err := scanPermission(r.db.QueryRowContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions p WHERE p.name = ? AND p.guard_name = ?`,
		name, guardOrDefault(guard)))
	if err != nil {
		return domain.Permission{}, mapNotFound(err)
	}
	return p, nil
}

func (r *permissionsRepo) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	return queryPermissions(ctx, r.db, `SELECT `+permissionColumns+` FROM permissions p ORDER BY p.name, p.guard_name`)
}

func (r *permissionsRepo) CreatePermission(ctx context.Context, p domain.Permission) error {
	ts := now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO permissions (id, name, guard_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, guardOrDefault(p.GuardName), ts, ts,
	)
	return mapConstraint(err)
}

func (r *permissionsRepo) UpdatePermission(ctx context.Context, p domain.Permission) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE permissions SET name = ?, guard_name = ?, updated_at = ? WHERE id = ?`,
		p.Name, guardOrDefault(p.GuardName), now(), p.ID,
	))
}

func (r *permissionsRepo) DeletePermission(ctx context.Context, id string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM permissions WHERE id = ?`, id))
}

func (r *permissionsRepo) FirstOrCreatePermission(ctx context.Context, p domain.Permission) (domain.Permission, bool, error) {
	p.GuardName = guardOrDefault(p.GuardName)

	existing, err := r.GetPermissionByName(ctx, p.Name, p.GuardName)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Permission{}, false, err
	}

	ts := now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO permissions (id, name, guard_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name, guard_name) DO NOTHING`,
		p.ID, p.Name, p.GuardName, ts, ts,
	)
	if err != nil {
		return domain.Permission{}, false, err
	}

	// A concurrent writer may have won the race between the read and the insert.
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Permission{}, false, err
	}
	got, err := r.GetPermissionByName(ctx, p.Name, p.GuardName)
	if err != nil {
		return domain.Permission{}, false, err
	}
	return got, n == 1, nil
}
