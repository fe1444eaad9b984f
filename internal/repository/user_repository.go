package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/22maksim/task-manager/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

const userColumns = "id,email,password_hash,first_name,last_name,role,status,created_at,updated_at"

// UserRepo is the identity store backed by the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail is the canonical form of an identity key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts an ACTIVE user and returns it with its new ID.  The
// password must already be hashed.
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	u.Email = NormalizeEmail(u.Email)
	if u.Status == "" {
		u.Status = model.StatusActive
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, first_name, last_name, role, status) VALUES (?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), string(u.Status))
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	u.ID = uint64(id)
	return u, nil
}

// GetByEmail fetches a user by normalized email.  ErrNotFound is returned
// when no such user exists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
	return scanUser(row)
}

// ExistsByEmail reports whether the email is registered.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM users WHERE email=?", NormalizeEmail(email)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u      model.User
		role   string
		status string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&role, &status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	u.Status = model.Status(status)
	return u, nil
}
