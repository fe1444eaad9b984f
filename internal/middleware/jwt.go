package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/22maksim/task-manager/internal/security"
)

// IdentityKey is the echo context key of the authenticated *security.Identity.
const IdentityKey = "identity"

// Authenticator resolves the caller from an Authorization header.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) security.Result
}

// Authenticate runs the gate once per request and attaches the identity to
// both the request context and the echo context.  It never rejects:
// RequireAuth and the role checks decide what an anonymous or rejected
// caller may reach.  A request that already carries an identity is passed
// through untouched.
func Authenticate(gate Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if _, ok := security.IdentityFromContext(req.Context()); ok {
				return next(c)
			}
			res := gate.Authenticate(req.Context(), req.Header.Get(echo.HeaderAuthorization))
			if res.State == security.StateAuthenticated {
				c.SetRequest(req.WithContext(security.ContextWithIdentity(req.Context(), res.Identity)))
				c.Set(IdentityKey, res.Identity)
			}
			return next(c)
		}
	}
}

// RequireAuth aborts with 401 unless Authenticate attached an identity.
// Invalid and expired tokens get the same response.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := CurrentIdentity(c); !ok {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="api"`)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return next(c)
	}
}

// CurrentIdentity returns the caller attached by Authenticate.
func CurrentIdentity(c echo.Context) (*security.Identity, bool) {
	if id, ok := c.Get(IdentityKey).(*security.Identity); ok && id != nil {
		return id, true
	}
	return security.IdentityFromContext(c.Request().Context())
}
