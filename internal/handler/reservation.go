package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/middleware"
	"github.com/iliyamo/restaurant-seating/internal/service"
)

// Allocate handles POST /v1/reservations. The body is
// {"date_time": RFC3339, "guests": n}. ACCEPTED answers 201 with the
// reservation; SUGGESTED, FULL and OUT_OF_HOURS answer 200 with the
// outcome so clients can offer the alternative. INTERNAL_ERROR answers 500.
// A malformed body, a non-positive party size or a date_time that is not in
// the future is rejected with 400 and no outcome.
func (h *SeatingHandler) Allocate(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		DateTime time.Time `json:"date_time"`
		Guests   int       `json:"guests"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Guests <= 0 || body.DateTime.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_time and a positive guests are required"})
	}

	a, err := h.svc.Allocate(c.Request().Context(), service.AllocationRequest{
		DateTime: body.DateTime,
		Guests:   body.Guests,
		UserID:   userID,
	})
	if err != nil && a.Outcome == service.AllocationInternalError {
		logError(c, err)
		return c.JSON(http.StatusInternalServerError, a)
	}
	if err != nil {
		return fail(c, err)
	}
	if a.Outcome == service.AllocationAccepted {
		return c.JSON(http.StatusCreated, a)
	}
	return c.JSON(http.StatusOK, a)
}

// JoinWaitingList handles POST /v1/waiting-list with {"guests": n}. Staff
// registering a walk-in at the door may pass "user_id" for the guest;
// customers always queue for themselves.
func (h *SeatingHandler) JoinWaitingList(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Guests int    `json:"guests"`
		UserID uint64 `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Guests <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "guests must be positive"})
	}
	if middleware.Role(c) == middleware.RoleStaff && body.UserID != 0 {
		userID = body.UserID
	}

	p, err := h.svc.JoinWaitingList(c.Request().Context(), body.Guests, userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}
