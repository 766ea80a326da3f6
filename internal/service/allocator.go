package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/lock"
	"github.com/iliyamo/restaurant-seating/internal/model"
)

// AllocationOutcome is the result of a booking request.
type AllocationOutcome string

const (
	AllocationAccepted      AllocationOutcome = "ACCEPTED"
	AllocationSuggested     AllocationOutcome = "SUGGESTED"
	AllocationFull          AllocationOutcome = "FULL"
	AllocationOutOfHours    AllocationOutcome = "OUT_OF_HOURS"
	AllocationInternalError AllocationOutcome = "INTERNAL_ERROR"
)

// AllocationRequest asks for a table for Guests people at DateTime.
type AllocationRequest struct {
	DateTime time.Time
	Guests   int
	UserID   uint64
}

// Allocation is the answer to an AllocationRequest. Reservation is set when
// the outcome is ACCEPTED; SuggestedAt when it is SUGGESTED.
type Allocation struct {
	Outcome     AllocationOutcome  `json:"outcome"`
	Reservation *model.Reservation `json:"reservation,omitempty"`
	SuggestedAt *time.Time         `json:"suggested_at,omitempty"`
}

// Allocate books the smallest capacity bucket that fits the party and still
// has a free table around the requested time. When none does it looks for
// the same time on the following days and suggests the first one with room,
// without booking it. A request for a time not after now fails with
// ErrInvalidRequest rather than an outcome.
func (e *Engine) Allocate(ctx context.Context, req AllocationRequest) (Allocation, error) {
	if req.Guests <= 0 || req.DateTime.IsZero() {
		return Allocation{}, ErrInvalidRequest
	}
	start := req.DateTime.UTC().Truncate(time.Minute)
	if !start.After(e.now()) {
		return Allocation{}, fmt.Errorf("%w: date_time is in the past", ErrInvalidRequest)
	}
	if !e.windowOpen(start) {
		return Allocation{Outcome: AllocationOutOfHours}, nil
	}

	buckets, err := e.store.BucketCounts(ctx)
	if err != nil {
		return Allocation{Outcome: AllocationInternalError}, fmt.Errorf("bucket counts: %w", err)
	}
	caps := fittingBuckets(buckets, req.Guests)

	for _, capacity := range caps {
		res, ok, err := e.reserveInBucket(ctx, capacity, buckets[capacity], start, req)
		if err != nil {
			return Allocation{Outcome: AllocationInternalError}, err
		}
		if ok {
			return Allocation{Outcome: AllocationAccepted, Reservation: res}, nil
		}
	}

	loc := e.location()
	local := start.In(loc)
	for day := 1; day <= e.policy.SuggestionDays; day++ {
		alt := local.AddDate(0, 0, day).UTC()
		if !e.windowOpen(alt) {
			continue
		}
		for _, capacity := range caps {
			if e.bucketHasRoom(ctx, capacity, buckets[capacity], alt) {
				return Allocation{Outcome: AllocationSuggested, SuggestedAt: &alt}, nil
			}
		}
	}
	return Allocation{Outcome: AllocationFull}, nil
}

// reserveInBucket books one table of capacity at start if the bucket has
// room. The bucket lock makes the count and the insert atomic with respect
// to other allocations.
func (e *Engine) reserveInBucket(ctx context.Context, capacity, physical int, start time.Time, req AllocationRequest) (*model.Reservation, bool, error) {
	unlock, err := e.locks.Lock(ctx, lock.BucketKey(capacity))
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	if !e.bucketHasRoom(ctx, capacity, physical, start) {
		return nil, false, nil
	}
	now := e.now()
	res := &model.Reservation{
		UserID:        req.UserID,
		DateTime:      start,
		Guests:        req.Guests,
		TableCapacity: capacity,
		Status:        model.ReservationActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		code, err := e.registerCode(ctx, KindReservation)
		if err != nil {
			return err
		}
		res.Code = code
		return e.store.CreateReservation(ctx, res)
	})
	if err != nil {
		return nil, false, fmt.Errorf("create reservation: %w", err)
	}
	return res, true, nil
}

// bucketHasRoom counts the bucket's reservations within the occupancy
// window around at. A failed count reports no room.
func (e *Engine) bucketHasRoom(ctx context.Context, capacity, physical int, at time.Time) bool {
	n, err := e.store.CountOccupyingInWindow(ctx, capacity, at.Add(-e.policy.OccupancyWindow), at.Add(e.policy.OccupancyWindow))
	if err != nil {
		log.Printf("allocator: counting bucket %d at %s failed, treating as full: %v", capacity, at.Format(time.RFC3339), err)
		return false
	}
	return n < physical
}

// windowOpen reports whether both ends of the dining window starting at
// start fall inside opening hours.
func (e *Engine) windowOpen(start time.Time) bool {
	loc := e.location()
	from := start.In(loc)
	to := start.Add(e.policy.DiningDuration).In(loc)
	return e.hours.IsOpen(from, from.Format("15:04")) && e.hours.IsOpen(to, to.Format("15:04"))
}

func (e *Engine) location() *time.Location {
	if loc := e.hours.Location(); loc != nil {
		return loc
	}
	return time.UTC
}

// fittingBuckets returns the capacities that can seat guests, ascending.
func fittingBuckets(buckets map[int]int, guests int) []int {
	caps := make([]int, 0, len(buckets))
	for c, n := range buckets {
		if c >= guests && n > 0 {
			caps = append(caps, c)
		}
	}
	sort.Ints(caps)
	return caps
}

// Availability is a summary of the inventory and today's opening hours.
type Availability struct {
	Buckets       map[int]int `json:"buckets"`
	TotalCapacity int         `json:"total_capacity"`
	FreeTables    int         `json:"free_tables"`
	Open          bool        `json:"open"`
	OpensAt       string      `json:"opens_at,omitempty"`
	ClosesAt      string      `json:"closes_at,omitempty"`
}

// Describer is implemented by hours policies that can report the opening
// window of a day.
type Describer interface {
	Describe(t time.Time) (open, closeAt string, ok bool)
}

// Availability reports the bucket counts, free tables and today's hours.
func (e *Engine) Availability(ctx context.Context) (Availability, error) {
	buckets, err := e.store.BucketCounts(ctx)
	if err != nil {
		return Availability{}, err
	}
	total, err := e.store.TotalCapacity(ctx)
	if err != nil {
		return Availability{}, err
	}
	free, err := e.store.FreeTables(ctx)
	if err != nil {
		return Availability{}, err
	}
	now := e.now()
	local := now.In(e.location())
	a := Availability{
		Buckets:       buckets,
		TotalCapacity: total,
		FreeTables:    len(free),
		Open:          e.hours.IsOpen(local, local.Format("15:04")),
	}
	if d, ok := e.hours.(Describer); ok {
		if open, closeAt, ok := d.Describe(now); ok {
			a.OpensAt, a.ClosesAt = open, closeAt
		}
	}
	return a, nil
}

// Tables lists the physical inventory.
func (e *Engine) Tables(ctx context.Context) ([]model.Table, error) {
	return e.store.ListTables(ctx)
}

// AddTable registers a new, available table and offers it to waiting
// parties.
func (e *Engine) AddTable(ctx context.Context, capacity int) (*model.Table, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidRequest)
	}
	t := &model.Table{Capacity: capacity, Available: true, CreatedAt: e.now()}
	if err := e.store.WithTx(ctx, func(ctx context.Context) error {
		return e.store.CreateTable(ctx, t)
	}); err != nil {
		return nil, err
	}
	if _, err := e.OnTableFreed(ctx, t.ID); err != nil {
		log.Printf("dispatcher: offering new table %d failed: %v", t.ID, err)
	}
	return t, nil
}
