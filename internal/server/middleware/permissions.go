package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// HasPermission reports whether the user carries the named permission.
// Admins receive the full permission set during authentication, so no
// separate role check is needed here.
func HasPermission(user *AppUser, permission string) bool {
	if user == nil {
		return false
	}
	return slices.Contains(user.Permissions, permission)
}

// RequirePermission guards a route behind one permission, e.g.
// review.decide for the approve/reject endpoints.
func RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(*AppContext).User
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			if !HasPermission(user, permission) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: missing permission " + permission})
			}

			return next(c)
		}
	}
}
