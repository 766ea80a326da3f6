package model

import "time"

// ReservationStatus enumerates the lifecycle states of a booking.
type ReservationStatus string

const (
	ReservationActive              ReservationStatus = "ACTIVE"
	ReservationWaitingAtRestaurant ReservationStatus = "WAITING_AT_RESTAURANT"
	ReservationNotified            ReservationStatus = "NOTIFIED"
	ReservationArrived             ReservationStatus = "ARRIVED"
	ReservationNoShow              ReservationStatus = "NOSHOW"
	ReservationFinished            ReservationStatus = "FINISHED"
	ReservationCancelled           ReservationStatus = "CANCELLED"
)

// OccupiesTable reports whether a reservation in this state still counts
// against its capacity bucket.
func (s ReservationStatus) OccupiesTable() bool {
	switch s {
	case ReservationActive, ReservationWaitingAtRestaurant, ReservationNotified, ReservationArrived:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case ReservationNoShow, ReservationFinished, ReservationCancelled:
		return true
	}
	return false
}

// Reservation records a booking for a party at a given time. Everything
// except the status bookkeeping is immutable once created.
//
// Fields:
//  Code          – confirmation code, the durable identity of the booking.
//  UserID        – user who booked.
//  DateTime      – scheduled start of the dining window (UTC).
//  Guests        – party size.
//  TableCapacity – capacity bucket chosen at allocation time.
//  Status        – lifecycle state.
//  NotifiedAt    – when the party was told a table is ready (nullable).
//  ReminderSent  – whether the "due soon" reminder went out.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Reservation struct {
	Code          string            `json:"code"`                  // reservations.code
	UserID        uint64            `json:"user_id"`               // reservations.user_id
	DateTime      time.Time         `json:"date_time"`             // reservations.date_time
	Guests        int               `json:"guests"`                // reservations.guests
	TableCapacity int               `json:"table_capacity"`        // reservations.table_capacity
	Status        ReservationStatus `json:"status"`                // reservations.status
	NotifiedAt    *time.Time        `json:"notified_at,omitempty"` // reservations.notified_at (nullable)
	ReminderSent  bool              `json:"reminder_sent"`         // reservations.reminder_sent
	CreatedAt     time.Time         `json:"created_at"`            // reservations.created_at
	UpdatedAt     time.Time         `json:"updated_at"`            // reservations.updated_at
}
