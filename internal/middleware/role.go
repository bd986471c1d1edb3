package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timingle-admin/internal/apperr"
	"github.com/iliyamo/timingle-admin/internal/authz"
)

// RequireSuperAdmin rejects requests whose principal is not SUPER_ADMIN.
// It must run after AdminAuth. Services check the role again.
func RequireSuperAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(apperr.HTTPStatus(apperr.ErrUnauthenticated), echo.Map{"error": apperr.Message(apperr.ErrUnauthenticated)})
			}
			if err := authz.RequireSuperAdmin(p); err != nil {
				return c.JSON(apperr.HTTPStatus(err), echo.Map{"error": apperr.Message(err)})
			}
			return next(c)
		}
	}
}
