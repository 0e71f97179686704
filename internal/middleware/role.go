package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/authz"
)

// RequireCapability aborts the request unless the principal attached by
// LoadPrincipal holds capability c.  Services repeat the check.
func RequireCapability(c authz.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			err := authz.Authorize(authz.FromContext(ec.Request().Context()), c)
			switch {
			case err == nil:
				return next(ec)
			case errors.Is(err, authz.ErrUnauthenticated):
				return ec.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			case errors.Is(err, authz.ErrBlocked):
				return ec.JSON(http.StatusForbidden, echo.Map{"error": "account is blocked"})
			default:
				return ec.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
		}
	}
}
