package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timingle-admin/internal/model"
	"github.com/iliyamo/timingle-admin/internal/service"
)

// UserHandler serves /api/users.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(u *service.UserService) *UserHandler {
	return &UserHandler{Users: u}
}

type statusReq struct {
	Status string `json:"status"`
}

type roleReq struct {
	Role string `json:"role"`
}

// List: GET /api/users?page=&limit=&search=&role=&status=
func (h *UserHandler) List(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return respondError(c, err)
	}
	f := model.UserFilter{
		Page:   page,
		Limit:  limit,
		Search: c.QueryParam("search"),
		Role:   model.Role(strings.ToUpper(strings.TrimSpace(c.QueryParam("role")))),
		Status: model.UserStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))),
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	items, pg, err := h.Users.List(ctx, principal(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return listResponse(c, items, pg)
}

// Get: GET /api/users/:id (audited as USER_VIEWED)
func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.Get(ctx, principal(c), id, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": u})
}

// UpdateStatus: PATCH /api/users/:id/status {"status": "ACTIVE"|"SUSPENDED"}
func (h *UserHandler) UpdateStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	status, err := h.Users.SetStatus(ctx, principal(c), id, model.UserStatus(strings.TrimSpace(req.Status)), requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User status updated",
		"data":    echo.Map{"id": id, "status": status},
	})
}

// UpdateRole: PATCH /api/users/:id/role {"role": ...} (SUPER_ADMIN only)
func (h *UserHandler) UpdateRole(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	role, err := h.Users.ChangeRole(ctx, principal(c), id, model.Role(strings.TrimSpace(req.Role)), requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User role updated",
		"data":    echo.Map{"id": id, "role": role},
	})
}

// Delete: DELETE /api/users/:id soft-deletes (SUPER_ADMIN only)
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Users.Delete(ctx, principal(c), id, requestMeta(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User deleted",
		"data":    echo.Map{"id": id, "status": model.UserStatusDeleted},
	})
}
