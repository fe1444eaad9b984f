package model

import (
	"strings"
	"time"
)

// Role is the closed set of roles a principal can hold.  The value is
// stored as-is in the `users.role` column.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Roles lists every defined role.  Lookup tables keyed by Role are
// expected to cover each entry.
var Roles = []Role{RoleUser, RoleAdmin}

// ParseRole normalizes s and reports whether it names a defined role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusDisabled Status = "DISABLED"
)

// User represents a principal as stored in the `users` table.  The
// email is the identity key and is kept lower-cased.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address, used as the token subject.
//  PasswordHash – bcrypt hashed password.
//  FirstName    – given name.
//  LastName     – family name.
//  Role         – USER or ADMIN.
//  Status       – ACTIVE or DISABLED.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	Role         Role      // users.role
	Status       Status    // users.status
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Active reports whether the account may authenticate.
func (u User) Active() bool { return u.Status == StatusActive }

// RefreshToken models a row of the `refresh_tokens` table.  There is at
// most one row per email; the plain token is never stored, only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  Email     – owner of the token (unique).
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of the last rotation.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	Email     string    // refresh_tokens.email
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
	UpdatedAt time.Time // refresh_tokens.updated_at
}
