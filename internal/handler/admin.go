package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/leave-request-service/internal/service"
)

// AdminHandler serves the balance reset endpoints.
type AdminHandler struct {
	Accounts *service.AccountService
}

func NewAdminHandler(a *service.AccountService) *AdminHandler {
	return &AdminHandler{Accounts: a}
}

// ResetUser sets one user's balance back to the default.
func (h *AdminHandler) ResetUser(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Accounts.ResetLeaveDays(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// ResetAll runs the periodic reset for every user.
func (h *AdminHandler) ResetAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	n, err := h.Accounts.ResetAllLeaveDays(ctx)
	if err != nil {
		return writeError(c, err)
	}
	admin, _ := getUserID(c)
	zap.L().Info("leave days reset for all users", zap.Int64("users", n), zap.Uint64("by", admin))
	return c.JSON(http.StatusOK, echo.Map{"reset": n})
}
