package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booktable/internal/model"
	"github.com/iliyamo/booktable/internal/utils"
)

// JWTAuth validates a Bearer access token and stores the caller in the
// request context: "user_id" (uint64), "role", "email" and the combined
// model.Actor under "actor".  Protected routes read it with ActorFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			uid, err := claims.UserID()
			if err != nil || !model.ValidRole(claims.Role) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			c.Set("user_id", uid)
			c.Set("role", claims.Role)
			c.Set("email", claims.Email)
			c.Set(actorKey, model.Actor{UserID: uid, Role: claims.Role, Email: claims.Email})
			return next(c)
		}
	}
}
