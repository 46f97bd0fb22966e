package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/leave-request-service/internal/model"
	"github.com/iliyamo/leave-request-service/internal/repository"
	"github.com/iliyamo/leave-request-service/internal/service"
)

// requestTimeout bounds the DB work of a single handler.
const requestTimeout = 5 * time.Second

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		if t != 0 {
			return t, nil
		}
	case float64:
		if t > 0 {
			return uint64(t), nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n != 0 {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": string(service.KindValidation), "message": msg})
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated", "message": "authentication required"})
}

// statusFor maps a service error kind to its HTTP status.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidStateTransition, service.KindConflict:
		return http.StatusConflict
	case service.KindUnauthorized:
		return http.StatusForbidden
	case service.KindInvalidCredentials:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": kind, "message": detail}.  Errors
// that are not service errors are logged and reported as 500.
func writeError(c echo.Context, err error) error {
	kind := service.KindOf(err)
	if kind == "" {
		zap.L().Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal server error"})
	}
	return c.JSON(statusFor(kind), echo.Map{"error": string(kind), "message": service.DetailOf(err)})
}

// ErrorHandler renders errors that escape handlers (unknown routes, bad
// methods, panics recovered by echo) in the same JSON shape.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		_ = c.JSON(he.Code, echo.Map{"error": http.StatusText(he.Code), "message": msg})
		return
	}
	_ = writeError(c, err)
}

// userResp is the public view of an account.
type userResp struct {
	ID                 uint64    `json:"id"`
	Username           string    `json:"username"`
	FullName           string    `json:"full_name"`
	RemainingLeaveDays int       `json:"remaining_leave_days"`
	IsAdmin            bool      `json:"is_admin"`
	Role               string    `json:"role"`
	CreatedAt          time.Time `json:"created_at"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:                 u.ID,
		Username:           u.Username,
		FullName:           u.FullName,
		RemainingLeaveDays: u.RemainingLeaveDays,
		IsAdmin:            u.IsAdmin,
		Role:               u.Role(),
		CreatedAt:          u.CreatedAt,
	}
}

// leaveResp is the JSON view of a leave request.  Dates are YYYY-MM-DD.
type leaveResp struct {
	ID          uint64    `json:"id"`
	RequesterID uint64    `json:"requester_id"`
	Reason      string    `json:"reason"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Days        int       `json:"days"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toLeaveResp(r model.LeaveRequest) leaveResp {
	return leaveResp{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		Reason:      r.Reason,
		StartDate:   r.StartDate.Format(repository.DateLayout),
		EndDate:     r.EndDate.Format(repository.DateLayout),
		Days:        service.DaysBetween(r.StartDate, r.EndDate),
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toLeaveList(rs []model.LeaveRequest) []leaveResp {
	out := make([]leaveResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, toLeaveResp(r))
	}
	return out
}
