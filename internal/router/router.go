package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/22maksim/task-manager/internal/handler"
	"github.com/22maksim/task-manager/internal/middleware"
	"github.com/22maksim/task-manager/internal/model"
	"github.com/22maksim/task-manager/internal/security"
)

// RegisterRoutes registers routes that do not require authentication:
// liveness, readiness and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, ready map[string]handler.Pinger, metrics http.Handler) {
	e.GET("/healthz", handler.Health(nil))
	e.GET("/readyz", handler.Health(ready))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the authentication endpoints.  gate must already
// be installed with middleware.Authenticate; limiter guards the
// credential endpoints and may be nil.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	sec := e.Group("/api/v1/security")
	if limiter != nil {
		sec.Use(limiter)
	}
	sec.POST("/register/user", a.RegisterUser)
	sec.POST("/register/admin", a.RegisterAdmin, middleware.RequireRole(model.RoleAdmin))
	sec.POST("/login", a.Login)
	sec.POST("/refresh", a.Refresh)
	sec.DELETE("/logout", a.Logout, middleware.RequireAuth)
	sec.DELETE("/sessions/:email", a.SignOut, middleware.RequirePermission(security.PermDelete))

	e.GET("/api/v1/me", a.Me, middleware.RequireAuth)
}
