package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timingle-admin/internal/service"
)

// AuthHandler serves login, me and logout.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

type loginReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login: verify phone/password and return a token with the admin record.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Phone, req.Password, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Me returns the authenticated admin's current record.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Auth.Me(ctx, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": u})
}

// Logout records the logout. The client drops its token.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, principal(c), requestMeta(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out"})
}
