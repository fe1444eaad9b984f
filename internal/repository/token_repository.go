package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/22maksim/task-manager/internal/model"
)

// TokenRepo persists refresh tokens, one row per email (unique key on
// `refresh_tokens.email`).  Only token hashes are stored.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Upsert stores tokenHash as the only refresh token of email, replacing
// any previous one in place.
func (r *TokenRepo) Upsert(ctx context.Context, email, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (email, token_hash, expires_at) VALUES (?,?,?) "+
			"ON DUPLICATE KEY UPDATE token_hash=VALUES(token_hash), expires_at=VALUES(expires_at)",
		email, tokenHash, exp.UTC())
	return err
}

// FindByHash returns the row holding tokenHash, or ErrNotFound.
func (r *TokenRepo) FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, email, token_hash, expires_at, created_at, updated_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.ID, &t.Email, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	return t, err
}

// Swap replaces oldHash with newHash for email only if oldHash is still
// the stored value.  It reports false when another writer rotated or
// deleted the row first.
func (r *TokenRepo) Swap(ctx context.Context, email, oldHash, newHash string, exp time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET token_hash=?, expires_at=? WHERE email=? AND token_hash=?",
		newHash, exp.UTC(), email, oldHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteByHash removes the row holding tokenHash.  Missing rows are not an error.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	return err
}

// DeleteByEmail removes the refresh token of email.  Missing rows are not an error.
func (r *TokenRepo) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE email=?", email)
	return err
}
