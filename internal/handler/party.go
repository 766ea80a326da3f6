package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/service"
)

func codeParam(c echo.Context) (string, bool) {
	code := strings.TrimSpace(c.Param("code"))
	return code, code != "" && len(code) <= 16
}

// PartyStatus handles GET /v1/parties/:code.
func (h *SeatingHandler) PartyStatus(c echo.Context) error {
	code, ok := codeParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid confirmation code"})
	}
	st, err := h.svc.Status(c.Request().Context(), code)
	if err != nil {
		return fail(c, err)
	}
	if !ownParty(c, st.Party) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusOK, st)
}

// CancelParty handles DELETE /v1/parties/:code.
func (h *SeatingHandler) CancelParty(c echo.Context) error {
	code, ok := codeParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid confirmation code"})
	}
	ctx := c.Request().Context()
	st, err := h.svc.Status(ctx, code)
	if err != nil {
		return fail(c, err)
	}
	if !ownParty(c, st.Party) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	p, err := h.svc.Cancel(ctx, code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Arrival handles POST /v1/parties/:code/arrival. Every outcome is a 200
// except DATABASE_ERROR, which carries the status of the underlying error.
func (h *SeatingHandler) Arrival(c echo.Context) error {
	code, ok := codeParam(c)
	if !ok {
		return c.JSON(http.StatusOK, service.ArrivalResult{Outcome: service.ArrivalInvalidCode})
	}
	res, err := h.svc.ProcessArrival(c.Request().Context(), code)
	if err != nil || res.Outcome == service.ArrivalDatabaseError {
		status := http.StatusInternalServerError
		if err != nil {
			status, _ = errorStatus(err)
			logError(c, err)
		}
		return c.JSON(status, service.ArrivalResult{Outcome: service.ArrivalDatabaseError})
	}
	return c.JSON(http.StatusOK, res)
}

// RequestBill handles POST /v1/parties/:code/bill.
func (h *SeatingHandler) RequestBill(c echo.Context) error {
	code, ok := codeParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid confirmation code"})
	}
	v, err := h.svc.RequestBill(c.Request().Context(), code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Payment handles POST /v1/parties/:code/payment: the bill is settled, the
// table released and offered to the next waiting party.
func (h *SeatingHandler) Payment(c echo.Context) error {
	code, ok := codeParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid confirmation code"})
	}
	done, err := h.svc.CompleteVisit(c.Request().Context(), code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, done)
}
