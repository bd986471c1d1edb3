package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timingle-admin/internal/model"
)

const principalKey = "principal"

// PrincipalFrom returns the principal stored by AdminAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok
}

// principalID is the rate limit identity: the admin id, or "anon" before
// authentication.
func principalID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok && p.ID != 0 {
		return strconv.FormatUint(p.ID, 10)
	}
	return "anon"
}
