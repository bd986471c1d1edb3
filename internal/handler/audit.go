package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timingle-admin/internal/model"
	"github.com/iliyamo/timingle-admin/internal/service"
)

// AuditHandler serves the read side of the audit ledger.
type AuditHandler struct {
	Ledger *service.AuditLedger
}

func NewAuditHandler(l *service.AuditLedger) *AuditHandler {
	return &AuditHandler{Ledger: l}
}

// List: GET /api/audit-logs?page=&limit=&action=&targetType=&adminId=&startDate=&endDate=
func (h *AuditHandler) List(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return respondError(c, err)
	}
	adminID, err := queryUint(c, "adminId")
	if err != nil {
		return respondError(c, err)
	}
	start, err := queryTime(c, "startDate", false)
	if err != nil {
		return respondError(c, err)
	}
	end, err := queryTime(c, "endDate", true)
	if err != nil {
		return respondError(c, err)
	}
	f := model.AuditFilter{
		Page:       page,
		Limit:      limit,
		Action:     strings.ToUpper(strings.TrimSpace(c.QueryParam("action"))),
		TargetType: model.TargetType(strings.ToLower(strings.TrimSpace(c.QueryParam("targetType")))),
		AdminID:    adminID,
		StartDate:  start,
		EndDate:    end,
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	items, pg, err := h.Ledger.Query(ctx, principal(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return listResponse(c, items, pg)
}

// ByTarget: GET /api/audit-logs/target/:type/:id?limit=
func (h *AuditHandler) ByTarget(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	t := model.TargetType(strings.ToLower(c.Param("type")))
	items, err := h.Ledger.QueryByTarget(ctx, principal(c), t, id, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}
