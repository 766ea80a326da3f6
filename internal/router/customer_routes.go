package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/handler"
	"github.com/iliyamo/restaurant-seating/internal/middleware"
)

// RegisterCustomer registers the endpoints customers use under /v1. Booking
// is CUSTOMER only; the waiting list and party lookups are shared with
// staff, who act on behalf of walk-ins. Handlers restrict customers to
// their own parties.
func RegisterCustomer(e *echo.Echo, h *handler.SeatingHandler, o Options) {
	c := e.Group("/v1", o.chain(middleware.RoleCustomer)...)
	c.POST("/reservations", h.Allocate)

	shared := e.Group("/v1", o.chain(middleware.RoleCustomer, middleware.RoleStaff)...)
	shared.POST("/waiting-list", h.JoinWaitingList)
	shared.GET("/parties/:code", h.PartyStatus)
	shared.DELETE("/parties/:code", h.CancelParty)
}
