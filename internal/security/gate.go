package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/22maksim/task-manager/internal/metrics"
	"github.com/22maksim/task-manager/internal/model"
	"github.com/22maksim/task-manager/internal/repository"
)

// IdentityStore is the principal lookup the gate depends on.  GetByEmail
// returns repository.ErrNotFound for unknown emails.
type IdentityStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
}

// Passwords is the opaque one-way password function.
type Passwords interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// State is the outcome of authenticating one request.
type State int

const (
	StateNoToken State = iota
	StateValidating
	StateAuthenticated
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateNoToken:
		return "no_token"
	case StateValidating:
		return "validating"
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Identity is the authenticated caller of a request.  Authorities come
// from the token, so a role change applies once the token is reissued.
type Identity struct {
	User        model.User
	Claims      *Claims
	Token       string
	Authorities []string
}

// Email is the identity key of the caller.
func (id *Identity) Email() string { return id.User.Email }

// HasAuthority reports whether a is among the caller's authorities.
func (id *Identity) HasAuthority(a string) bool {
	for _, have := range id.Authorities {
		if have == a {
			return true
		}
	}
	return false
}

func (id *Identity) HasRole(r model.Role) bool { return id.HasAuthority(RoleAuthority(r)) }

func (id *Identity) HasPermission(p Permission) bool { return id.HasAuthority(string(p)) }

// Result is what Authenticate hands to the request pipeline.  Err explains
// a rejection for logging only.
type Result struct {
	State    State
	Identity *Identity
	Err      error
}

// Session is the token pair produced by login and refresh.  Refresh is
// zero after registration.
type Session struct {
	User    model.User
	Access  AccessToken
	Refresh RefreshRecord
}

// Account is the input of Register.
type Account struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Gate authenticates requests and runs the state-changing entry points
// (register, login, refresh, logout).  It keeps no per-request state.
type Gate struct {
	codec     *Codec
	ledger    *Ledger
	refresh   *RefreshStore
	users     IdentityStore
	passwords Passwords
	log       *slog.Logger
}

func NewGate(codec *Codec, ledger *Ledger, refresh *RefreshStore, users IdentityStore, passwords Passwords, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{codec: codec, ledger: ledger, refresh: refresh, users: users, passwords: passwords, log: log}
}

// BearerToken extracts the token of an "Authorization: Bearer <jwt>" header.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// Authenticate resolves the caller of a request from its Authorization
// header.  A missing header yields StateNoToken; any failure, including
// store errors, yields StateRejected.  It never returns an error: the
// authorization layer decides what an unauthenticated caller may do.
func (g *Gate) Authenticate(ctx context.Context, authorization string) Result {
	token, ok := BearerToken(authorization)
	if !ok {
		metrics.ObserveGate(StateNoToken.String(), "")
		return Result{State: StateNoToken}
	}

	claims, err := g.codec.Verify(token)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, ErrExpiredToken) {
			reason = "expired"
		}
		g.log.Debug("access token rejected", "reason", reason, "err", err)
		return g.reject(reason, err)
	}

	revoked, err := g.ledger.IsRevoked(ctx, token)
	if err != nil {
		g.log.Warn("revocation check failed, rejecting request", "err", err)
		return g.reject("store_error", err)
	}
	if revoked {
		g.log.Debug("revoked access token presented", "email", claims.Subject)
		return g.reject("revoked", fmt.Errorf("%w: revoked", ErrInvalidToken))
	}

	u, err := g.users.GetByEmail(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		g.log.Warn("token subject has no account", "email", claims.Subject)
		return g.reject("unknown_principal", fmt.Errorf("%w: unknown subject", ErrInvalidToken))
	}
	if err != nil {
		g.log.Warn("identity lookup failed, rejecting request", "err", err)
		return g.reject("store_error", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	if !u.Active() {
		g.log.Warn("disabled account presented a token", "email", u.Email)
		return g.reject("disabled", ErrAccountDisabled)
	}

	metrics.ObserveGate(StateAuthenticated.String(), "")
	return Result{
		State: StateAuthenticated,
		Identity: &Identity{
			User:        u,
			Claims:      claims,
			Token:       token,
			Authorities: append(append([]string{}, claims.Permissions...), claims.Role),
		},
	}
}

func (g *Gate) reject(reason string, err error) Result {
	metrics.ObserveGate(StateRejected.String(), reason)
	return Result{State: StateRejected, Err: err}
}

// Register creates an ACTIVE account with role and returns it with an
// access token.  No account is created when a token could not be minted
// for it.
func (g *Gate) Register(ctx context.Context, a Account, role model.Role) (Session, error) {
	email := repository.NormalizeEmail(a.Email)
	if email == "" {
		return Session{}, fmt.Errorf("%w: email is required", ErrIssuance)
	}
	if _, ok := rolePermissions[role]; !ok {
		return Session{}, fmt.Errorf("%w: undefined role %q", ErrIssuance, role)
	}
	if a.Password == "" {
		return Session{}, fmt.Errorf("%w: password is required", ErrInvalidCredentials)
	}
	hash, err := g.passwords.Hash(a.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := g.users.Create(ctx, model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(a.FirstName),
		LastName:     strings.TrimSpace(a.LastName),
		Role:         role,
		Status:       model.StatusActive,
	})
	if errors.Is(err, repository.ErrEmailExists) {
		return Session{}, ErrAccountExists
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: create account: %v", ErrUnavailable, err)
	}
	access, err := g.codec.Issue(u)
	if err != nil {
		return Session{}, err
	}
	g.log.Info("account registered", "email", u.Email, "role", string(u.Role))
	return Session{User: u, Access: access}, nil
}

// EnsureAccount registers the account unless its email is taken.
func (g *Gate) EnsureAccount(ctx context.Context, a Account, role model.Role) (bool, error) {
	_, err := g.Register(ctx, a, role)
	if errors.Is(err, ErrAccountExists) {
		return false, nil
	}
	return err == nil, err
}

// Login checks credentials and issues an access token plus a refresh
// token that replaces any earlier one of the same principal.
func (g *Gate) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := g.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: load account: %v", ErrUnavailable, err)
	}
	if !g.passwords.Verify(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	if !u.Active() {
		return Session{}, ErrAccountDisabled
	}
	access, err := g.codec.Issue(u)
	if err != nil {
		return Session{}, err
	}
	refresh, err := g.refresh.IssueOrRotate(ctx, u.Email)
	if err != nil {
		return Session{}, err
	}
	g.log.Info("user login", "email", u.Email)
	return Session{User: u, Access: access, Refresh: refresh}, nil
}

// Refresh redeems a refresh token bound to email for a new token pair.
func (g *Gate) Refresh(ctx context.Context, refreshToken, email string) (Session, error) {
	rec, err := g.refresh.Redeem(ctx, refreshToken, email)
	if err != nil {
		return Session{}, err
	}
	u, err := g.users.GetByEmail(ctx, rec.Email)
	if errors.Is(err, repository.ErrNotFound) {
		_ = g.refresh.Revoke(ctx, rec.Email)
		return Session{}, ErrRefreshNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: load account: %v", ErrUnavailable, err)
	}
	if !u.Active() {
		_ = g.refresh.Revoke(ctx, rec.Email)
		return Session{}, ErrAccountDisabled
	}
	access, err := g.codec.Issue(u)
	if err != nil {
		return Session{}, err
	}
	g.log.Info("access token refreshed", "email", u.Email)
	return Session{User: u, Access: access, Refresh: rec}, nil
}

// RevokeAccess puts token in the ledger for exactly its remaining lifetime.
func (g *Gate) RevokeAccess(ctx context.Context, token string, claims *Claims) error {
	ttl := g.codec.Remaining(claims)
	if err := g.ledger.Revoke(ctx, token, ttl); err != nil {
		return err
	}
	if ttl > 0 {
		metrics.Revocations.Inc()
	}
	return nil
}

// Logout revokes the caller's current access token and deletes their
// refresh token.
func (g *Gate) Logout(ctx context.Context, id *Identity) error {
	if id == nil {
		return fmt.Errorf("%w: no authenticated caller", ErrInvalidToken)
	}
	if err := g.RevokeAccess(ctx, id.Token, id.Claims); err != nil {
		return err
	}
	if err := g.refresh.Revoke(ctx, id.Email()); err != nil {
		return err
	}
	g.log.Info("user logout", "email", id.Email())
	return nil
}

// SignOut deletes the refresh token of email so no new access tokens can
// be obtained for it.  Access tokens already issued run to expiry.
func (g *Gate) SignOut(ctx context.Context, email string) error {
	if err := g.refresh.Revoke(ctx, email); err != nil {
		return err
	}
	g.log.Info("refresh token revoked", "email", repository.NormalizeEmail(email))
	return nil
}
