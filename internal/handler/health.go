package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is a dependency whose reachability the readiness check reports.
type Pinger func(ctx context.Context) error

// Health returns a liveness handler when no dependencies are given and a
// readiness handler otherwise.  Each named dependency is pinged with a
// short timeout; any failure yields 503.
func Health(deps map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if len(deps) == 0 {
			return c.String(http.StatusOK, "ok")
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status, checks := http.StatusOK, make(map[string]string, len(deps))
		for name, ping := range deps {
			if err := ping(ctx); err != nil {
				status, checks[name] = http.StatusServiceUnavailable, "down"
				continue
			}
			checks[name] = "up"
		}
		return c.JSON(status, checks)
	}
}
