package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booktable/internal/model"
)

const actorKey = "actor"

// ActorFrom returns the caller authenticated by JWTAuth.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(actorKey).(model.Actor)
	return a, ok
}

// userKey identifies the caller for rate limiting: the user ID when the
// request is authenticated, "anon" otherwise.
func userKey(c echo.Context) string {
	if a, ok := ActorFrom(c); ok {
		return strconv.FormatUint(a.UserID, 10)
	}
	return "anon"
}
