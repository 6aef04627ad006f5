package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
)

type modulesRepo struct {
	db dbtx
}

const moduleColumns = `id, name, slug, description, is_active, last_used_at, created_at, updated_at`

func scanModule(row rowScanner) (domain.Module, error) {
	var (
		m        domain.Module
		lastUsed sql.NullTime
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Slug, &m.Description, &m.IsActive, &lastUsed, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return domain.Module{}, err
	}
	m.LastUsedAt = mapNullTimePtr(lastUsed)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m, nil
}

func (r *modulesRepo) GetModuleByID(ctx context.Context, id string) (domain.Module, error) {
	m, err := scanModule(r.db.QueryRowContext(ctx, `SELECT `+moduleColumns+` FROM modules WHERE id = ?`, id))
	if err != nil {
		return domain.Module{}, mapNotFound(err)
	}
	return m, nil
}

func (r *modulesRepo) GetModuleBySlug(ctx context.Context, slug string) (domain.Module, error) {
	m, err := scanModule(r.db.QueryRowContext(ctx, `SELECT `+moduleColumns+` FROM modules WHERE slug = ?`, slug))
	if err != nil {
		return domain.Module{}, mapNotFound(err)
	}
	return m, nil
}

func (r *modulesRepo) ListModules(ctx context.Context) ([]domain.Module, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+moduleColumns+` FROM modules ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []domain.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

func (r *modulesRepo) UpsertModule(ctx context.Context, m domain.Module) (domain.Module, error) {
	ts := now()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO modules (id, name, slug, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
		RETURNING `+moduleColumns,
		m.ID, m.Name, m.Slug, m.Description, m.IsActive, ts, ts,
	)
	return scanModule(row)
}

func (r *modulesRepo) SetModuleActive(ctx context.Context, id string, active bool) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE modules SET is_active = ?, updated_at = ? WHERE id = ?`, active, now(), id))
}

func (r *modulesRepo) TouchModuleLastUsed(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE modules SET last_used_at = ? WHERE id = ?`, at.UTC(), id))
}
