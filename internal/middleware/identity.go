package middleware

// identity.go turns the token subject stored by JWTAuth into a principal
// loaded from the users table, so blocks and status changes apply at once.

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/authz"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
)

// UserLoader fetches the account behind a token.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// LoadPrincipal must run after JWTAuth.  Deleted accounts are rejected with
// 401 and blocked ones with 403; otherwise the principal is attached to the
// request context for the service layer.
func LoadPrincipal(users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := userID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			u, err := users.GetByID(ctx, uid)
			cancel()
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			if err != nil {
				c.Logger().Errorf("load principal %d: %v", uid, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			if u.IsBlocked {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account is blocked"})
			}

			p := authz.FromUser(u)
			c.SetRequest(c.Request().WithContext(authz.WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

// userID returns the id stored by JWTAuth.
func userID(c echo.Context) (uint64, bool) {
	uid, ok := c.Get(UserIDKey).(uint64)
	return uid, ok && uid != 0
}

// userKey renders the caller for rate-limit keys; anonymous callers share
// "anon".
func userKey(c echo.Context) string {
	if uid, ok := userID(c); ok {
		return strconv.FormatUint(uid, 10)
	}
	return "anon"
}
