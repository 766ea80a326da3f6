package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Availability handles GET /v1/availability, the public summary of the
// inventory and today's opening hours.
func (h *SeatingHandler) Availability(c echo.Context) error {
	a, err := h.svc.Availability(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// ListTables handles GET /v1/tables.
func (h *SeatingHandler) ListTables(c echo.Context) error {
	tables, err := h.svc.Tables(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tables": tables})
}

// AddTable handles POST /v1/tables with {"capacity": n}.
func (h *SeatingHandler) AddTable(c echo.Context) error {
	var body struct {
		Capacity int `json:"capacity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Capacity <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}
	t, err := h.svc.AddTable(c.Request().Context(), body.Capacity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// TableFreed handles POST /v1/tables/:id/freed. Staff use it to re-offer a
// free table to the waiting list by hand.
func (h *SeatingHandler) TableFreed(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	d, err := h.svc.OnTableFreed(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
