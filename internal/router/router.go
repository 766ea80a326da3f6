package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/handler"
	"github.com/iliyamo/restaurant-seating/internal/middleware"
)

// Options carries what the route groups need besides the handler. RateLimit
// and Cache may be nil.
type Options struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func (o Options) chain(roles ...string) []echo.MiddlewareFunc {
	m := []echo.MiddlewareFunc{middleware.JWTAuth(o.JWTSecret)}
	if o.RateLimit != nil {
		m = append(m, o.RateLimit)
	}
	return append(m, middleware.RequireRole(roles...))
}

// Register mounts every route of the seating API.
func Register(e *echo.Echo, h *handler.SeatingHandler, o Options) {
	RegisterPublic(e, h, o)
	RegisterCustomer(e, h, o)
	RegisterStaff(e, h, o)
}

// RegisterPublic registers routes that do not require authentication: the
// health check and the cached availability summary.
func RegisterPublic(e *echo.Echo, h *handler.SeatingHandler, o Options) {
	e.GET("/healthz", handler.Health)

	var m []echo.MiddlewareFunc
	if o.RateLimit != nil {
		m = append(m, o.RateLimit)
	}
	if o.Cache != nil {
		m = append(m, o.Cache)
	}
	e.GET("/v1/availability", h.Availability, m...)
}
