package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `u.id, u.name, u.email, u.google_id, u.avatar, u.created_at, u.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u        domain.User
		googleID sql.NullString
		avatar   sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &googleID, &avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	u.GoogleID = mapNullStringPtr(googleID)
	u.Avatar = mapNullStringPtr(avatar)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) queryUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = ?`, email))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	return r.queryUsers(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.name, u.id`)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	ts := now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, google_id, avatar, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, mapOptionalString(u.GoogleID), mapOptionalString(u.Avatar), ts, ts,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	return requireAffected(r.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, email = ?, google_id = ?, avatar = ?, updated_at = ?
		WHERE id = ?`,
		u.Name, u.Email, mapOptionalString(u.GoogleID), mapOptionalString(u.Avatar), now(), u.ID,
	))
}

func (r *usersRepo) DeleteUser(ctx context.Context, id string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetGoogleCredentials(ctx context.Context, userID string) (domain.GoogleCredentials, error) {
	var (
		access, refresh sql.NullString
		expires         sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT google_token, google_refresh_token, google_token_expires_at
		FROM users WHERE id = ?`, userID,
	).Scan(&access, &refresh, &expires)
	if err != nil {
		return domain.GoogleCredentials{}, mapNotFound(err)
	}

	return domain.GoogleCredentials{
		AccessToken:  mapNullString(access),
		RefreshToken: mapNullString(refresh),
		ExpiresAt:    mapNullTimePtr(expires),
	}, nil
}

func (r *usersRepo) SaveGoogleCredentials(ctx context.Context, userID string, creds domain.GoogleCredentials) error {
	return requireAffected(r.db.ExecContext(ctx, `
		UPDATE users
		SET google_token = ?, google_refresh_token = ?, google_token_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		mapStringNull(creds.AccessToken), mapStringNull(creds.RefreshToken), mapOptionalTime(creds.ExpiresAt), now(), userID,
	))
}

func (r *usersRepo) ListUserRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	return queryRoles(ctx, r.db, `
		SELECT `+roleColumns+`
		FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.name`, userID)
}

func (r *usersRepo) AssignRole(ctx context.Context, userID, roleID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES (?, ?) ON CONFLICT DO NOTHING`, userID, roleID)
	return mapForeignKey(err)
}

func (r *usersRepo) RemoveRole(ctx context.Context, userID, roleID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ? AND role_id = ?`, userID, roleID)
	return err
}

func (r *usersRepo) ListDirectPermissions(ctx context.Context, userID string) ([]domain.Permission, error) {
	return queryPermissions(ctx, r.db, `
		SELECT `+permissionColumns+`
		FROM permissions p JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = ?
		ORDER BY p.name`, userID)
}

func (r *usersRepo) GivePermission(ctx context.Context, userID, permissionID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_permissions (user_id, permission_id) VALUES (?, ?) ON CONFLICT DO NOTHING`, userID, permissionID)
	return mapForeignKey(err)
}

func (r *usersRepo) RevokePermission(ctx context.Context, userID, permissionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_permissions WHERE user_id = ? AND permission_id = ?`, userID, permissionID)
	return err
}

func (r *usersRepo) ListEffectivePermissions(ctx context.Context, userID string) ([]domain.Permission, error) {
	return queryPermissions(ctx, r.db, `
		SELECT `+permissionColumns+` FROM permissions p
		WHERE p.id IN (
			SELECT up.permission_id FROM user_permissions up WHERE up.user_id = ?
			UNION
			SELECT rp.permission_id FROM role_permissions rp
			JOIN user_roles ur ON ur.role_id = rp.role_id
			WHERE ur.user_id = ?
		)
		ORDER BY p.name`, userID, userID)
}

func (r *usersRepo) ListUsersWithPermission(ctx context.Context, permissionID string) ([]domain.User, error) {
	return r.queryUsers(ctx, `
		SELECT `+userColumns+` FROM users u
		WHERE u.id IN (
			SELECT up.user_id FROM user_permissions up WHERE up.permission_id = ?
			UNION
			SELECT ur.user_id FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			WHERE rp.permission_id = ?
		)
		ORDER BY u.name, u.id`, permissionID, permissionID)
}
