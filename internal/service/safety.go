package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

// SafetyChecker decides whether guests can be seated now without stranding
// a reservation due within the horizon. exclude is the confirmation code of
// the party being seated, which is never counted against itself.
type SafetyChecker interface {
	CanSeat(ctx context.Context, guests int, now time.Time, exclude string) (bool, error)
}

// Safety strategy names.
const (
	SafetyCapacitySum = "capacity_sum"
	SafetyBestFit     = "best_fit"
)

// SafetyStore is the read side the safety checks need.
type SafetyStore interface {
	ListActiveInWindow(ctx context.Context, start, end time.Time) ([]model.Reservation, error)
	TotalCapacity(ctx context.Context) (int, error)
	FreeTables(ctx context.Context) ([]model.Table, error)
}

// NewSafetyChecker returns the checker named by strategy. Unknown names and
// the empty string select the capacity-sum form.
func NewSafetyChecker(strategy string, store SafetyStore, horizon time.Duration) SafetyChecker {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case SafetyBestFit, "best-fit", "bestfit":
		return &BestFitSimulation{store: store, horizon: horizon}
	default:
		return &CapacitySum{store: store, horizon: horizon}
	}
}

// CapacitySum is safe when the guests of every reservation due within the
// horizon plus the incoming guests fit the restaurant's total capacity.
type CapacitySum struct {
	store   SafetyStore
	horizon time.Duration
}

func (c *CapacitySum) CanSeat(ctx context.Context, guests int, now time.Time, exclude string) (bool, error) {
	upcoming, err := upcomingReservations(ctx, c.store, now, c.horizon, exclude)
	if err != nil {
		return false, err
	}
	total, err := c.store.TotalCapacity(ctx)
	if err != nil {
		return false, err
	}
	sum := guests
	for _, r := range upcoming {
		sum += r.Guests
	}
	return sum <= total, nil
}

// BestFitSimulation hands one free table to each reservation due within the
// horizon, largest party first and smallest fitting table each time, and is
// safe when a fitting table is left for the incoming party.
type BestFitSimulation struct {
	store   SafetyStore
	horizon time.Duration
}

func (b *BestFitSimulation) CanSeat(ctx context.Context, guests int, now time.Time, exclude string) (bool, error) {
	upcoming, err := upcomingReservations(ctx, b.store, now, b.horizon, exclude)
	if err != nil {
		return false, err
	}
	free, err := b.store.FreeTables(ctx)
	if err != nil {
		return false, err
	}
	caps := make([]int, 0, len(free))
	for _, t := range free {
		caps = append(caps, t.Capacity)
	}
	sort.Ints(caps)

	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Guests > upcoming[j].Guests })
	for _, r := range upcoming {
		// A reservation no free table fits does not consume one.
		if i := smallestFit(caps, r.Guests); i >= 0 {
			caps = append(caps[:i], caps[i+1:]...)
		}
	}
	return smallestFit(caps, guests) >= 0, nil
}

// smallestFit returns the index of the first capacity >= guests in the
// ascending slice caps, or -1.
func smallestFit(caps []int, guests int) int {
	i := sort.SearchInts(caps, guests)
	if i == len(caps) {
		return -1
	}
	return i
}

func upcomingReservations(ctx context.Context, s SafetyStore, now time.Time, horizon time.Duration, exclude string) ([]model.Reservation, error) {
	list, err := s.ListActiveInWindow(ctx, now, now.Add(horizon))
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, r := range list {
		if r.Code != exclude {
			out = append(out, r)
		}
	}
	return out, nil
}
