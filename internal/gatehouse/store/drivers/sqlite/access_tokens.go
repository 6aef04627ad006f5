package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
)

type accessTokensRepo struct {
	db dbtx
}

const accessTokenColumns = `id, principal_type, principal_id, name, token_hash, abilities, expires_at, last_used_at, created_at`

func scanAccessToken(row rowScanner) (domain.AccessToken, error) {
	var (
		t         domain.AccessToken
		kind      string
		abilities string
		expires   sql.NullTime
		lastUsed  sql.NullTime
	)
	if err := row.Scan(&t.ID, &kind, &t.PrincipalID, &t.Name, &t.TokenHash, &abilities, &expires, &lastUsed, &t.CreatedAt); err != nil {
		return domain.AccessToken{}, err
	}
	t.PrincipalType = domain.PrincipalType(kind)
	t.Abilities = splitAndFilter(abilities)
	t.ExpiresAt = mapNullTimePtr(expires)
	t.LastUsedAt = mapNullTimePtr(lastUsed)
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	created := t.CreatedAt
	if created.IsZero() {
		created = now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_tokens (id, principal_type, principal_id, name, token_hash, abilities, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.PrincipalType), t.PrincipalID, t.Name, t.TokenHash,
		strings.Join(t.Abilities, " "), mapOptionalTime(t.ExpiresAt), created.UTC(),
	)
	return mapConstraint(err)
}

func (r *accessTokensRepo) GetAccessTokenByID(ctx context.Context, id string) (domain.AccessToken, error) {
	t, err := scanAccessToken(r.db.QueryRowContext(ctx, `SELECT `+accessTokenColumns+` FROM access_tokens WHERE id = ?`, id))
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *accessTokensRepo) GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	t, err := scanAccessToken(r.db.QueryRowContext(ctx, `SELECT `+accessTokenColumns+` FROM access_tokens WHERE token_hash = ?`, hash))
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *accessTokensRepo) ListAccessTokensForPrincipal(ctx context.Context, kind domain.PrincipalType, principalID string) ([]domain.AccessToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accessTokenColumns+` FROM access_tokens
		WHERE principal_type = ? AND principal_id = ?
		ORDER BY created_at DESC, id DESC`, string(kind), principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.AccessToken
	for rows.Next() {
		t, err := scanAccessToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *accessTokensRepo) DeleteAccessToken(ctx context.Context, id string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE id = ?`, id))
}

func (r *accessTokensRepo) DeleteAccessTokensForPrincipal(ctx context.Context, kind domain.PrincipalType, principalID, name string) (int64, error) {
	query := `DELETE FROM access_tokens WHERE principal_type = ? AND principal_id = ?`
	args := []any{string(kind), principalID}
	if name != "" {
		query += ` AND name = ?`
		args = append(args, name)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete principal tokens: %w", err)
	}
	return res.RowsAffected()
}

func (r *accessTokensRepo) DeleteExpiredAccessTokens(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE expires_at IS NOT NULL AND expires_at <= ?`, at.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
