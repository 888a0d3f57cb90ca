package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// HeaderUserID carries the caller's id, set by the authenticating proxy in front of the service.
const HeaderUserID = "X-User-ID"

const userIDKey = "user_id"

func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
		if id == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing "+HeaderUserID+" header")
		}
		c.Set(userIDKey, id)
		return next(c)
	}
}

// UserID returns the id stored by RequireUser, or "" on routes without it.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
