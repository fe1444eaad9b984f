package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRepoUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	mock.ExpectExec("INSERT INTO refresh_tokens .* ON DUPLICATE KEY UPDATE").
		WithArgs("a@x.com", "h1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Upsert(context.Background(), "a@x.com", "h1", time.Now().Add(time.Hour)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepoFindByHash(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)
	exp := time.Now().Add(time.Hour).UTC()

	mock.ExpectQuery("SELECT .* FROM refresh_tokens WHERE token_hash=\\?").
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "token_hash", "expires_at", "created_at", "updated_at"}).
			AddRow(3, "a@x.com", "h1", exp, exp, exp))

	tok, err := repo.FindByHash(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", tok.Email)
	assert.True(t, tok.ExpiresAt.Equal(exp))

	mock.ExpectQuery("SELECT .* FROM refresh_tokens").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepoSwap(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	mock.ExpectExec("UPDATE refresh_tokens SET token_hash=\\?, expires_at=\\? WHERE email=\\? AND token_hash=\\?").
		WithArgs("h2", sqlmock.AnyArg(), "a@x.com", "h1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Swap(context.Background(), "a@x.com", "h1", "h2", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs("h3", sqlmock.AnyArg(), "a@x.com", "h1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Swap(context.Background(), "a@x.com", "h1", "h3", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "stale hash must lose the swap")
}

func TestTokenRepoDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	mock.ExpectExec("DELETE FROM refresh_tokens WHERE email=\\?").
		WithArgs("a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM refresh_tokens WHERE token_hash=\\?").
		WithArgs("h1").
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, repo.DeleteByEmail(context.Background(), "a@x.com"))
	assert.Error(t, repo.DeleteByHash(context.Background(), "h1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
