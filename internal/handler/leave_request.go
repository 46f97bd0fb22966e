package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/leave-request-service/internal/model"
	"github.com/iliyamo/leave-request-service/internal/service"
)

// LeaveHandler serves /v1/leave-requests.
type LeaveHandler struct {
	Leaves *service.LeaveService
}

func NewLeaveHandler(s *service.LeaveService) *LeaveHandler {
	if s == nil {
		panic("nil leave service passed to NewLeaveHandler")
	}
	return &LeaveHandler{Leaves: s}
}

type createLeaveReq struct {
	Reason    string `json:"reason"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type setStatusReq struct {
	Status string `json:"status"`
}

// Create submits a leave request for the caller.
func (h *LeaveHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthenticated(c)
	}
	var req createLeaveReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	start, err := service.ParseDate(req.StartDate)
	if err != nil {
		return writeError(c, err)
	}
	end, err := service.ParseDate(req.EndDate)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	lr, err := h.Leaves.Create(ctx, uid, req.Reason, start, end)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toLeaveResp(lr))
}

// Mine lists the caller's own requests.
func (h *LeaveHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthenticated(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Leaves.ListByRequester(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toLeaveList(list)})
}

// List returns every request; admin only.
func (h *LeaveHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Leaves.ListAll(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toLeaveList(list)})
}

// Get returns one request.  Users may only read their own; admins any.
func (h *LeaveHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthenticated(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	lr, err := h.Leaves.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if lr.RequesterID != uid && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": string(service.KindUnauthorized), "message": "leave request belongs to another user"})
	}
	return c.JSON(http.StatusOK, toLeaveResp(lr))
}

// Delete withdraws one of the caller's pending requests.
func (h *LeaveHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthenticated(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Leaves.Delete(ctx, id, uid); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetStatus approves or denies a request; admin only.
func (h *LeaveHandler) SetStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req setStatusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	lr, err := h.Leaves.SetStatus(ctx, id, model.LeaveStatus(req.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toLeaveResp(lr))
}
