package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/22maksim/task-manager/internal/model"
	"github.com/22maksim/task-manager/internal/security"
)

// RequireRole returns a middleware that lets the request through only if
// the caller holds one of roles.  Anonymous callers get 401, authenticated
// callers without the role get 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return requireAny(func(id *security.Identity) bool {
		for _, r := range roles {
			if id.HasRole(r) {
				return true
			}
		}
		return false
	})
}

// RequirePermission is RequireRole for fine-grained permissions.
func RequirePermission(perms ...security.Permission) echo.MiddlewareFunc {
	return requireAny(func(id *security.Identity) bool {
		for _, p := range perms {
			if id.HasPermission(p) {
				return true
			}
		}
		return false
	})
}

func requireAny(allowed func(*security.Identity) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return RequireAuth(func(c echo.Context) error {
			id, _ := CurrentIdentity(c)
			if !allowed(id) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		})
	}
}
