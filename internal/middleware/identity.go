package middleware

import "github.com/labstack/echo/v4"

// userID is the rate limit key part for the caller: the principal email,
// or "anon" when the request is not authenticated.
func userID(c echo.Context) string {
	if id, ok := CurrentIdentity(c); ok && id.Email() != "" {
		return id.Email()
	}
	return "anon"
}
