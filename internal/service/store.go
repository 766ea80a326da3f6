package service

import (
	"context"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

// TxRunner runs fn inside one store transaction. Calls made with the
// context passed to fn join the transaction; returning an error rolls
// everything back.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Inventory is the contract to the physical table inventory.
type Inventory interface {
	// BucketCounts maps capacity to the number of tables of that size.
	BucketCounts(ctx context.Context) (map[int]int, error)
	GetTable(ctx context.Context, id int64) (*model.Table, error)
	ListTables(ctx context.Context) ([]model.Table, error)
	CreateTable(ctx context.Context, t *model.Table) error
	// FreeTables lists available, unheld tables by capacity then id.
	FreeTables(ctx context.Context) ([]model.Table, error)
	TotalCapacity(ctx context.Context) (int, error)
	// SetTableAvailable flips the flag; it fails with ErrConflict when the
	// table is already in the requested state.
	SetTableAvailable(ctx context.Context, id int64, available bool) error
	// HoldTable promises an unheld table to code.
	HoldTable(ctx context.Context, id int64, code string) error
	ReleaseTableHold(ctx context.Context, id int64, code string) error
	// TableHeldBy returns the table promised to code, or nil.
	TableHeldBy(ctx context.Context, code string) (*model.Table, error)
}

// CodeRegistry guarantees confirmation codes are unique across
// reservations and waiting entries.
type CodeRegistry interface {
	// RegisterCode fails with ErrDuplicate if code is taken.
	RegisterCode(ctx context.Context, code, kind string) error
}

// ReservationStore persists reservations. Status changes are
// compare-and-set: they fail with ErrConflict if the stored status is not
// the expected one.
type ReservationStore interface {
	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, code string) (*model.Reservation, error)
	// CountOccupyingInWindow counts reservations of one capacity bucket
	// whose start lies in [start, end] and that still occupy a table.
	CountOccupyingInWindow(ctx context.Context, tableCapacity int, start, end time.Time) (int, error)
	// ListActiveInWindow lists ACTIVE reservations starting in [start, end).
	ListActiveInWindow(ctx context.Context, start, end time.Time) ([]model.Reservation, error)
	// ListReservationsByStatus orders by scheduled time ascending.
	ListReservationsByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error)
	// ListOverdueReservations lists ACTIVE reservations scheduled before cutoff.
	ListOverdueReservations(ctx context.Context, cutoff time.Time) ([]model.Reservation, error)
	// ListDueForReminder lists ACTIVE, not yet reminded reservations
	// starting in [from, until).
	ListDueForReminder(ctx context.Context, from, until time.Time) ([]model.Reservation, error)
	// MarkReminderSent fails with ErrConflict if already marked.
	MarkReminderSent(ctx context.Context, code string) error
	UpdateReservationStatus(ctx context.Context, code string, from, to model.ReservationStatus) error
	// MarkReservationNotified moves WAITING_AT_RESTAURANT to NOTIFIED.
	MarkReservationNotified(ctx context.Context, code string, at time.Time) error
}

// WaitingStore persists the walk-in waiting list.
type WaitingStore interface {
	CreateEntry(ctx context.Context, e *model.WaitingEntry) error
	GetEntry(ctx context.Context, code string) (*model.WaitingEntry, error)
	// ListEntriesByStatus orders by entry time ascending.
	ListEntriesByStatus(ctx context.Context, status model.WaitingStatus) ([]model.WaitingEntry, error)
	UpdateEntryStatus(ctx context.Context, code string, from, to model.WaitingStatus) error
	// MarkEntryNotified moves WAITING to NOTIFIED.
	MarkEntryNotified(ctx context.Context, code string, at time.Time) error
}

// VisitStore persists visits and their bills.
type VisitStore interface {
	CreateBill(ctx context.Context, b *model.Bill) error
	CloseBill(ctx context.Context, id string, at time.Time) error
	// CreateVisit fails with ErrDuplicate if code was already seated.
	CreateVisit(ctx context.Context, v *model.Visit) error
	// GetOpenVisit returns the ACTIVE or BILL_PENDING visit of code.
	GetOpenVisit(ctx context.Context, code string) (*model.Visit, error)
	ListOpenVisits(ctx context.Context) ([]model.Visit, error)
	UpdateVisitStatus(ctx context.Context, id int64, from, to model.VisitStatus, at time.Time) error
	// MarkOverstayAlerted fails with ErrConflict if the alert was already
	// claimed.
	MarkOverstayAlerted(ctx context.Context, id int64, at time.Time) error
}

// Store is everything the engine needs from persistence.
type Store interface {
	TxRunner
	Inventory
	CodeRegistry
	ReservationStore
	WaitingStore
	VisitStore
}

// Locker serializes work per key (see package lock).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// HoursPolicy answers whether the restaurant is open.
type HoursPolicy interface {
	IsOpen(date time.Time, hhmm string) bool
	Location() *time.Location
}
