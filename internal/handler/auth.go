package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/22maksim/task-manager/internal/metrics"
	"github.com/22maksim/task-manager/internal/middleware"
	"github.com/22maksim/task-manager/internal/model"
	"github.com/22maksim/task-manager/internal/queue"
	"github.com/22maksim/task-manager/internal/security"
	"github.com/22maksim/task-manager/internal/service"
)

const requestTimeout = 5 * time.Second

// AuthService is the part of security.Gate the endpoints drive.
type AuthService interface {
	Register(ctx context.Context, a security.Account, role model.Role) (security.Session, error)
	Login(ctx context.Context, email, password string) (security.Session, error)
	Refresh(ctx context.Context, refreshToken, email string) (security.Session, error)
	Logout(ctx context.Context, id *security.Identity) error
	SignOut(ctx context.Context, email string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth  AuthService
	Audit *service.Auditor
	Log   *slog.Logger
}

func NewAuthHandler(auth AuthService, audit *service.Auditor, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{Auth: auth, Audit: audit, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role"`
}
type authResp struct {
	User    userPart   `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh *tokenPart `json:"refresh,omitempty"`
}

func toResp(s security.Session) authResp {
	r := authResp{
		User: userPart{
			ID:        s.User.ID,
			Email:     s.User.Email,
			FirstName: s.User.FirstName,
			LastName:  s.User.LastName,
			Role:      string(s.User.Role),
		},
		Access: tokenPart{Token: s.Access.Token, Expires: s.Access.ExpiresAt},
	}
	if s.Refresh.Token != "" {
		r.Refresh = &tokenPart{Token: s.Refresh.Token, Expires: s.Refresh.ExpiresAt}
	}
	return r
}

// RegisterUser creates a USER account.  Public.
func (h *AuthHandler) RegisterUser(c echo.Context) error {
	return h.register(c, model.RoleUser, "")
}

// RegisterAdmin creates an ADMIN account.  Routed behind RequireRole(ADMIN).
func (h *AuthHandler) RegisterAdmin(c echo.Context) error {
	actor := ""
	if id, ok := middleware.CurrentIdentity(c); ok {
		actor = id.Email()
	}
	return h.register(c, model.RoleAdmin, actor)
}

func (h *AuthHandler) register(c echo.Context, role model.Role, actor string) error {
	const op = "register"
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Auth.Register(ctx, security.Account{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, role)
	if err != nil {
		return h.fail(c, op, err)
	}
	metrics.ObserveOperation(op, "ok")
	h.Audit.Record(queue.EventRegistered, s.User.Email, actor)
	return c.JSON(http.StatusCreated, toResp(s))
}

// Login verifies credentials and returns a new token pair.  The access
// token is also set in the Authorization response header.
func (h *AuthHandler) Login(c echo.Context) error {
	const op = "login"
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, security.ErrInvalidCredentials) || errors.Is(err, security.ErrAccountDisabled) {
			h.Audit.Record(queue.EventLoginFailed, strings.ToLower(strings.TrimSpace(req.Email)), "")
		}
		return h.fail(c, op, err)
	}
	metrics.ObserveOperation(op, "ok")
	h.Audit.Record(queue.EventLogin, s.User.Email, "")
	c.Response().Header().Set(echo.HeaderAuthorization, "Bearer "+s.Access.Token)
	return c.JSON(http.StatusOK, toResp(s))
}

// Refresh redeems a refresh token for a rotated pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	const op = "refresh"
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.RefreshToken) == "" || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken/email required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Auth.Refresh(ctx, req.RefreshToken, req.Email)
	if err != nil {
		return h.fail(c, op, err)
	}
	metrics.ObserveOperation(op, "ok")
	h.Audit.Record(queue.EventRefreshed, s.User.Email, "")
	c.Response().Header().Set(echo.HeaderAuthorization, "Bearer "+s.Access.Token)
	return c.JSON(http.StatusOK, toResp(s))
}

// Logout revokes the presented access token and the caller's refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	const op = "logout"
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Auth.Logout(ctx, id); err != nil {
		return h.fail(c, op, err)
	}
	metrics.ObserveOperation(op, "ok")
	h.Audit.Record(queue.EventLogout, id.Email(), "")
	return c.NoContent(http.StatusNoContent)
}

// SignOut deletes another principal's refresh token.  Routed behind
// RequirePermission(delete).
func (h *AuthHandler) SignOut(c echo.Context) error {
	const op = "signout"
	email := strings.TrimSpace(c.Param("email"))
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Auth.SignOut(ctx, email); err != nil {
		return h.fail(c, op, err)
	}
	actor := ""
	if id, ok := middleware.CurrentIdentity(c); ok {
		actor = id.Email()
	}
	metrics.ObserveOperation(op, "ok")
	h.Audit.Record(queue.EventSignedOut, strings.ToLower(email), actor)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated caller.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":          id.User.ID,
		"email":       id.Email(),
		"firstName":   id.User.FirstName,
		"lastName":    id.User.LastName,
		"role":        id.Claims.Role,
		"authorities": id.Authorities,
		"expires":     id.Claims.ExpiresAt.Time,
	})
}

// fail maps an error of the auth core to its HTTP response and records the
// outcome.  Refresh failures share one body so callers cannot tell a
// stolen token from a stale one.
func (h *AuthHandler) fail(c echo.Context, op string, err error) error {
	status, result, msg := http.StatusInternalServerError, "error", "internal error"
	switch {
	case security.IsRefreshRejected(err):
		status, result, msg = http.StatusUnauthorized, "rejected", "refresh rejected"
	case errors.Is(err, security.ErrInvalidCredentials):
		status, result, msg = http.StatusUnauthorized, "rejected", "invalid credentials"
	case security.IsUnauthenticated(err):
		status, result, msg = http.StatusUnauthorized, "rejected", "unauthorized"
	case errors.Is(err, security.ErrAccountDisabled):
		status, result, msg = http.StatusForbidden, "disabled", "account disabled"
	case errors.Is(err, security.ErrAccountExists):
		status, result, msg = http.StatusConflict, "conflict", "email already exists"
	case errors.Is(err, security.ErrIssuance):
		status, result, msg = http.StatusBadRequest, "refused", "cannot issue token for this principal"
	case errors.Is(err, security.ErrUnavailable):
		status, result, msg = http.StatusServiceUnavailable, "unavailable", "service unavailable"
	}
	metrics.ObserveOperation(op, result)
	if status >= http.StatusInternalServerError {
		h.Log.Error("auth operation failed", "op", op, "err", err)
	} else {
		h.Log.Info("auth operation rejected", "op", op, "status", status, "err", err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}
