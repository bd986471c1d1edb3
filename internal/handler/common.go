// Package handler exposes the admin services over HTTP with echo. Handlers
// parse and validate request shape, pass the authenticated principal and
// request provenance to the services, and translate errors into
// {"error": ...} bodies.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timingle-admin/internal/apperr"
	"github.com/iliyamo/timingle-admin/internal/middleware"
	"github.com/iliyamo/timingle-admin/internal/model"
)

const requestTimeout = 5 * time.Second

// respondError writes the client-safe body for err. Server-side failures
// are logged with their cause.
func respondError(c echo.Context, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{"error": apperr.Message(err)})
}

// HTTPErrorHandler renders errors that escape handlers (unknown routes,
// wrong methods, panics recovered by echo) in the same {"error": ...} shape.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if he.Code == http.StatusNotFound {
			msg = "Not Found"
		} else if m, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
			msg = m
		}
		if he.Code >= http.StatusInternalServerError {
			c.Logger().Error(err)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, echo.Map{"error": msg})
		return
	}
	_ = respondError(c, err)
}

// principal returns the admin stored by the auth middleware.
func principal(c echo.Context) model.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

// requestMeta collects the provenance recorded with audit entries. The
// client address prefers the first X-Forwarded-For hop, then X-Real-IP.
func requestMeta(c echo.Context) model.RequestMeta {
	req := c.Request()
	ip := ""
	if xff := req.Header.Get(echo.HeaderXForwardedFor); xff != "" {
		ip = strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if ip == "" {
		ip = strings.TrimSpace(req.Header.Get(echo.HeaderXRealIP))
	}
	if ip == "" {
		ip = c.RealIP()
	}
	rid := c.Response().Header().Get(echo.HeaderXRequestID)
	if rid == "" {
		rid = req.Header.Get(echo.HeaderXRequestID)
	}
	return model.RequestMeta{IPAddress: ip, UserAgent: req.UserAgent(), RequestID: rid}
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("Invalid %s", name)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter; absent means def.
func queryInt(c echo.Context, name string, def int) (int, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Validation("Invalid %s", name)
	}
	return n, nil
}

// queryUint reads an optional id-like query parameter; absent means 0.
func queryUint(c echo.Context, name string) (uint64, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, apperr.Validation("Invalid %s", name)
	}
	return n, nil
}

// pageParams reads page and limit. The services apply the defaults and
// the maximum.
func pageParams(c echo.Context) (int, int, error) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

// queryTime parses RFC 3339 or YYYY-MM-DD. A date-only end bound covers
// the whole day.
func queryTime(c echo.Context, name string, endOfDay bool) (*time.Time, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, apperr.Validation("Invalid %s", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func listResponse(c echo.Context, data any, pg model.Pagination) error {
	return c.JSON(http.StatusOK, echo.Map{"data": data, "pagination": pg})
}
