package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timingle-admin/internal/model"
	"github.com/iliyamo/timingle-admin/internal/service"
)

// EventHandler serves /api/events.
type EventHandler struct {
	Events *service.EventService
}

func NewEventHandler(e *service.EventService) *EventHandler {
	return &EventHandler{Events: e}
}

// List: GET /api/events?page=&limit=&search=&status=&creatorId=
func (h *EventHandler) List(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return respondError(c, err)
	}
	creator, err := queryUint(c, "creatorId")
	if err != nil {
		return respondError(c, err)
	}
	f := model.EventFilter{
		Page:      page,
		Limit:     limit,
		Search:    c.QueryParam("search"),
		Status:    model.EventStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))),
		CreatorID: creator,
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	items, pg, err := h.Events.List(ctx, principal(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return listResponse(c, items, pg)
}

// Get: GET /api/events/:id with participants (audited as EVENT_VIEWED)
func (h *EventHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	d, err := h.Events.Get(ctx, principal(c), id, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": d})
}

// Delete: DELETE /api/events/:id cancels the event.
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	changed, err := h.Events.Delete(ctx, principal(c), id, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	msg := "Event deleted"
	if !changed {
		msg = "Event already canceled"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": msg,
		"data":    echo.Map{"id": id, "status": model.EventStatusCanceled},
	})
}
