package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

//contextに入っているroleがADMINかどうかを確認します。AuthJWTの後ろに置く。

func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawRole := c.Get(CtxUserRoleKey)
			role, ok := rawRole.(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, unauthorized())
			}

			//ADMINだけ許可
			if role != RoleAdmin {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "Admin only", Code: "forbidden"})
			}

			return next(c)
		}
	}
}

// 商品更新系に付けるguard一式。secretが空なら何も付けない。
func AdminGuards(secret string) []echo.MiddlewareFunc {
	if secret == "" {
		return nil
	}
	return []echo.MiddlewareFunc{AuthJWT(secret), AdminRoleGuard()}
}
