package middleware // middleware holds the reusable echo middleware of the API

import (
	"net/http" // HTTP status codes for responses
	"strings"  // prefix checking and trimming

	"github.com/labstack/echo/v4" // echo middleware signatures

	"github.com/iliyamo/tour-booking/internal/utils" // access token parsing
)

// UserIDKey is the echo context key holding the authenticated user id as a
// uint64.
const UserIDKey = "user_id"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores its subject under UserIDKey.  The token must be HS256-signed
// with secret and carry an expiry.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A missing or malformed header means the caller is anonymous.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			uid, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(UserIDKey, uid)
			return next(c)
		}
	}
}
