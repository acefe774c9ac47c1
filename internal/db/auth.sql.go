package db

import (
	"context"
	"database/sql"
)

const getAuthConfig = `SELECT id, client_id, client_secret, access_token, refresh_token, expires_at, created_at, updated_at
FROM auth_config WHERE id = 1`

// GetAuthConfig returns the stored OAuth configuration
func (q *Queries) GetAuthConfig(ctx context.Context) (AuthConfig, error) {
	var c AuthConfig
	err := q.db.QueryRowContext(ctx, getAuthConfig).Scan(
		&c.ID,
		&c.ClientID,
		&c.ClientSecret,
		&c.AccessToken,
		&c.RefreshToken,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

const saveAuthConfig = `INSERT INTO auth_config (id, client_id, client_secret, access_token, refresh_token, expires_at)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	client_id = excluded.client_id,
	client_secret = excluded.client_secret,
	access_token = excluded.access_token,
	refresh_token = excluded.refresh_token,
	expires_at = excluded.expires_at,
	updated_at = CURRENT_TIMESTAMP`

// SaveAuthConfigParams are the columns written by SaveAuthConfig
type SaveAuthConfigParams struct {
	ClientID     string
	ClientSecret string
	AccessToken  sql.NullString
	RefreshToken sql.NullString
	ExpiresAt    sql.NullInt64
}

// SaveAuthConfig creates or replaces the OAuth configuration
func (q *Queries) SaveAuthConfig(ctx context.Context, arg SaveAuthConfigParams) error {
	_, err := q.db.ExecContext(ctx, saveAuthConfig,
		arg.ClientID,
		arg.ClientSecret,
		arg.AccessToken,
		arg.RefreshToken,
		arg.ExpiresAt,
	)
	return err
}

const updateTokens = `UPDATE auth_config
SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = 1`

// UpdateTokensParams are the token columns written by UpdateTokens
type UpdateTokensParams struct {
	AccessToken  sql.NullString
	RefreshToken sql.NullString
	ExpiresAt    sql.NullInt64
}

// UpdateTokens replaces the stored tokens, keeping client credentials
func (q *Queries) UpdateTokens(ctx context.Context, arg UpdateTokensParams) error {
	_, err := q.db.ExecContext(ctx, updateTokens, arg.AccessToken, arg.RefreshToken, arg.ExpiresAt)
	return err
}

const deleteAuthConfig = `DELETE FROM auth_config WHERE id = 1`

// DeleteAuthConfig removes the stored OAuth configuration
func (q *Queries) DeleteAuthConfig(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAuthConfig)
	return err
}
