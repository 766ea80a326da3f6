package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/handler"
	"github.com/iliyamo/restaurant-seating/internal/middleware"
)

// RegisterStaff registers STAFF-scoped endpoints under /v1: the front desk
// check-in flow and the table inventory.
func RegisterStaff(e *echo.Echo, h *handler.SeatingHandler, o Options) {
	g := e.Group("/v1", o.chain(middleware.RoleStaff)...)

	// ---- Arrival and departure ----
	g.POST("/parties/:code/arrival", h.Arrival)
	g.POST("/parties/:code/bill", h.RequestBill)
	g.POST("/parties/:code/payment", h.Payment)

	// ---- Tables ----
	g.GET("/tables", h.ListTables)
	g.POST("/tables", h.AddTable)
	g.POST("/tables/:id/freed", h.TableFreed)
}
