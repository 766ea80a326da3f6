package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-seating/internal/middleware"
	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
	"github.com/iliyamo/restaurant-seating/internal/service"
)

// SeatingService is the part of the seating engine the HTTP API drives.
type SeatingService interface {
	Allocate(ctx context.Context, req service.AllocationRequest) (service.Allocation, error)
	JoinWaitingList(ctx context.Context, guests int, userID uint64) (service.Party, error)
	Status(ctx context.Context, code string) (service.PartyStatus, error)
	Cancel(ctx context.Context, code string) (service.Party, error)
	ProcessArrival(ctx context.Context, code string) (service.ArrivalResult, error)
	RequestBill(ctx context.Context, code string) (*model.Visit, error)
	CompleteVisit(ctx context.Context, code string) (service.Completion, error)
	Availability(ctx context.Context) (service.Availability, error)
	Tables(ctx context.Context) ([]model.Table, error)
	AddTable(ctx context.Context, capacity int) (*model.Table, error)
	OnTableFreed(ctx context.Context, tableID int64) (service.Dispatch, error)
}

// SeatingHandler serves the reservation, waiting-list, arrival and table
// endpoints. Authentication and role checks are done by middleware; the
// handlers only enforce that customers touch their own parties.
type SeatingHandler struct {
	svc SeatingService
}

// NewSeatingHandler panics if svc is nil.
func NewSeatingHandler(svc SeatingService) *SeatingHandler {
	if svc == nil {
		panic("nil service passed to NewSeatingHandler")
	}
	return &SeatingHandler{svc: svc}
}

// errorStatus maps engine and store errors onto HTTP statuses. Anything
// unrecognised is a 500 with a generic message; the cause is logged.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrPartyTooLarge):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrRestaurantClosed):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrUnknownCode), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrNotCancellable), errors.Is(err, service.ErrNoOpenVisit):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrSeatingContention), errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, service.ErrSeatingContention.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	}
	return http.StatusInternalServerError, "database error"
}

func fail(c echo.Context, err error) error {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		logError(c, err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func logError(c echo.Context, err error) {
	log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
}

// ownParty hides parties of other users from customers. Staff see all.
func ownParty(c echo.Context, p service.Party) bool {
	if middleware.Role(c) == middleware.RoleStaff {
		return true
	}
	uid, ok := middleware.UserID(c)
	return ok && uid == p.UserID
}
