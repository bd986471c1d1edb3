package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timingle-admin/internal/service"
)

// StatsHandler serves the dashboard and system health.
type StatsHandler struct {
	Stats  *service.StatsService
	System *service.SystemService
}

func NewStatsHandler(s *service.StatsService, sys *service.SystemService) *StatsHandler {
	return &StatsHandler{Stats: s, System: sys}
}

// Overview: GET /api/stats/overview
func (h *StatsHandler) Overview(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	o, err := h.Stats.Overview(ctx, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": o})
}

// UsersDaily: GET /api/stats/users/daily?days=7
func (h *StatsHandler) UsersDaily(c echo.Context) error {
	days, err := queryInt(c, "days", 0)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.Stats.DailyUsers(ctx, principal(c), days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// EventsDaily: GET /api/stats/events/daily?days=7
func (h *StatsHandler) EventsDaily(c echo.Context) error {
	days, err := queryInt(c, "days", 0)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.Stats.DailyEvents(ctx, principal(c), days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// SystemHealth: GET /api/system/health
func (h *StatsHandler) SystemHealth(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	r, err := h.System.Health(ctx, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": r})
}
