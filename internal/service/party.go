package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// PartyKind tells which table a confirmation code lives in.
type PartyKind string

const (
	KindReservation PartyKind = "RESERVATION"
	KindWaiting     PartyKind = "WAITING"
)

// Shared status values. Waiting entries and reservations both use NOTIFIED,
// ARRIVED and CANCELLED.
const (
	statusNotified  = "NOTIFIED"
	statusArrived   = "ARRIVED"
	statusCancelled = "CANCELLED"
)

// Party is the common view of a reservation or a waiting-list entry,
// addressed by confirmation code.
type Party struct {
	Kind   PartyKind `json:"kind"`
	Code   string    `json:"code"`
	UserID uint64    `json:"user_id"`
	Guests int       `json:"guests"`
	Status string    `json:"status"`
	// At is the scheduled time of a reservation or the queue time of a
	// waiting entry.
	At         time.Time  `json:"at"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
}

func reservationParty(r *model.Reservation) Party {
	return Party{
		Kind:       KindReservation,
		Code:       r.Code,
		UserID:     r.UserID,
		Guests:     r.Guests,
		Status:     string(r.Status),
		At:         r.DateTime,
		NotifiedAt: r.NotifiedAt,
	}
}

func entryParty(e *model.WaitingEntry) Party {
	return Party{
		Kind:       KindWaiting,
		Code:       e.Code,
		UserID:     e.UserID,
		Guests:     e.Guests,
		Status:     string(e.Status),
		At:         e.EntryTime,
		NotifiedAt: e.NotifiedAt,
	}
}

// Notified reports whether a table is currently promised to the party.
func (p Party) Notified() bool { return p.Status == statusNotified }

// loadParty resolves code against reservations first, then the waiting list.
func loadParty(ctx context.Context, s Store, code string) (Party, error) {
	r, err := s.GetReservation(ctx, code)
	if err == nil {
		return reservationParty(r), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return Party{}, err
	}
	e, err := s.GetEntry(ctx, code)
	if err == nil {
		return entryParty(e), nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return Party{}, ErrUnknownCode
	}
	return Party{}, err
}

func setPartyStatus(ctx context.Context, s Store, p Party, to string) error {
	if p.Kind == KindReservation {
		return s.UpdateReservationStatus(ctx, p.Code, model.ReservationStatus(p.Status), model.ReservationStatus(to))
	}
	return s.UpdateEntryStatus(ctx, p.Code, model.WaitingStatus(p.Status), model.WaitingStatus(to))
}

func markPartyNotified(ctx context.Context, s Store, p Party, at time.Time) error {
	if p.Kind == KindReservation {
		return s.MarkReservationNotified(ctx, p.Code, at)
	}
	return s.MarkEntryNotified(ctx, p.Code, at)
}

// expiredStatus is where a notified party goes when it fails to show up.
func expiredStatus(p Party) string {
	if p.Kind == KindReservation {
		return string(model.ReservationNoShow)
	}
	return statusCancelled
}

// cancellable reports whether the party may still be cancelled.
func cancellable(p Party) bool {
	if p.Kind == KindReservation {
		switch model.ReservationStatus(p.Status) {
		case model.ReservationActive, model.ReservationWaitingAtRestaurant, model.ReservationNotified:
			return true
		}
		return false
	}
	switch model.WaitingStatus(p.Status) {
	case model.WaitingQueued, model.WaitingNotified:
		return true
	}
	return false
}
