// Package middleware holds the echo middleware that sits in front of the
// admin handlers: bearer authentication, role enforcement and rate limiting.
package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timingle-admin/internal/apperr"
	"github.com/iliyamo/timingle-admin/internal/authz"
)

// AdminAuth validates the Authorization header through the gate and stores
// the resulting admin principal in the echo context. Requests without a
// valid ADMIN or SUPER_ADMIN token never reach the handler.
func AdminAuth(gate *authz.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := gate.RequireAdmin(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return c.JSON(apperr.HTTPStatus(err), echo.Map{"error": apperr.Message(err)})
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}
