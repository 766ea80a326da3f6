package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

func TestAllocate_AcceptsSmallestFittingBucket(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(2)
	f.store.addTable(4)
	f.store.addTable(4)
	f.store.addTable(6)

	got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 3, UserID: 7})
	require.NoError(t, err)
	require.Equal(t, AllocationAccepted, got.Outcome)
	require.NotNil(t, got.Reservation)

	assert.Len(t, got.Reservation.Code, 6)
	assert.Equal(t, 4, got.Reservation.TableCapacity)
	stored := f.store.reservation(got.Reservation.Code)
	assert.Equal(t, model.ReservationActive, stored.Status)
	assert.Equal(t, uint64(7), stored.UserID)
	assert.True(t, stored.DateTime.Equal(at(3, 19, 0)))
}

func TestAllocate_FallsThroughToLargerBucket(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(2)
	f.store.addTable(4)
	f.store.addReservation(model.Reservation{Code: "900001", DateTime: at(3, 18, 30), Guests: 2, TableCapacity: 2, Status: model.ReservationActive})

	got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 2})
	require.NoError(t, err)
	require.Equal(t, AllocationAccepted, got.Outcome)
	assert.Equal(t, 4, got.Reservation.TableCapacity)
}

func TestAllocate_FullSlotSuggestsNextDay(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(4)
	f.store.addTable(4)
	f.store.addReservation(model.Reservation{Code: "900001", DateTime: at(3, 19, 0), Guests: 4, Status: model.ReservationActive})
	f.store.addReservation(model.Reservation{Code: "900002", DateTime: at(3, 20, 0), Guests: 3, TableCapacity: 4, Status: model.ReservationArrived})

	got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 4})
	require.NoError(t, err)
	require.Equal(t, AllocationSuggested, got.Outcome)
	require.NotNil(t, got.SuggestedAt)
	assert.True(t, got.SuggestedAt.Equal(at(4, 19, 0)))
	assert.Nil(t, got.Reservation)

	// Nothing is booked for a suggestion.
	n, err := f.store.CountOccupyingInWindow(context.Background(), 4, at(4, 17, 0), at(4, 21, 0))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAllocate_FullWhenNextDaysAreFullToo(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(4)
	f.store.addTable(4)
	codes := []string{"900001", "900002", "900003", "900004", "900005", "900006", "900007", "900008"}
	for day := 3; day <= 6; day++ {
		for i := 0; i < 2; i++ {
			code := codes[(day-3)*2+i]
			f.store.addReservation(model.Reservation{Code: code, DateTime: at(day, 19, 0), Guests: 4, Status: model.ReservationActive})
		}
	}

	got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 4})
	require.NoError(t, err)
	assert.Equal(t, AllocationFull, got.Outcome)
}

func TestAllocate_CancelledReservationsDoNotOccupy(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(4)
	f.store.addReservation(model.Reservation{Code: "900001", DateTime: at(3, 19, 0), Guests: 4, Status: model.ReservationCancelled})
	f.store.addReservation(model.Reservation{Code: "900002", DateTime: at(3, 19, 0), Guests: 4, Status: model.ReservationNoShow})

	got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 4})
	require.NoError(t, err)
	assert.Equal(t, AllocationAccepted, got.Outcome)
}

func TestAllocate_OccupancyWindowIsTwoHoursEitherSide(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(4)
	f.store.addReservation(model.Reservation{Code: "900001", DateTime: at(3, 16, 59), Guests: 4, Status: model.ReservationActive})

	got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 4})
	require.NoError(t, err)
	assert.Equal(t, AllocationAccepted, got.Outcome)

	got, err = f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 21, 0), Guests: 4})
	require.NoError(t, err)
	assert.Equal(t, AllocationSuggested, got.Outcome, "19:00 booking is exactly two hours away")
}

func TestAllocate_OutOfHours(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(4)

	for _, start := range []time.Time{at(3, 9, 0), at(3, 21, 30), at(3, 23, 0)} {
		got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: start, Guests: 2})
		require.NoError(t, err)
		assert.Equal(t, AllocationOutOfHours, got.Outcome, start.Format(time.Kitchen))
	}

	got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 21, 0), Guests: 2})
	require.NoError(t, err)
	assert.Equal(t, AllocationAccepted, got.Outcome, "a window ending exactly at closing is open")
}

func TestAllocate_SkipsClosedSuggestionDays(t *testing.T) {
	hours := everyDayHours + `overrides:
  - date: "2026-03-04"
    closed: true
`
	f := newFixtureWithHours(t, at(2, 12, 0), hours)
	f.store.addTable(4)
	f.store.addReservation(model.Reservation{Code: "900001", DateTime: at(3, 19, 0), Guests: 4, Status: model.ReservationActive})

	got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 4})
	require.NoError(t, err)
	require.Equal(t, AllocationSuggested, got.Outcome)
	assert.True(t, got.SuggestedAt.Equal(at(5, 19, 0)))
}

func TestAllocate_InvalidRequests(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(4)

	_, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 0})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.engine.Allocate(context.Background(), AllocationRequest{Guests: 2})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(2, 11, 0), Guests: 2})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAllocate_PartyLargerThanEveryTableIsFull(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(4)

	got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 9})
	require.NoError(t, err)
	assert.Equal(t, AllocationFull, got.Outcome)
}

func TestAllocate_CountFailureTreatsBucketAsFull(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(4)
	f.store.setFail("CountOccupyingInWindow", errors.New("connection reset"))

	got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 2})
	require.NoError(t, err)
	assert.Equal(t, AllocationFull, got.Outcome)

	list, _ := f.store.ListReservationsByStatus(context.Background(), model.ReservationActive)
	assert.Empty(t, list)
}

func TestAllocate_StoreFailureIsInternalError(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(4)
	f.store.setFail("CreateReservation", errors.New("disk full"))

	got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 2})
	require.Error(t, err)
	assert.Equal(t, AllocationInternalError, got.Outcome)

	// The code registered inside the failed transaction is rolled back.
	f.store.mu.Lock()
	assert.Empty(t, f.store.codes)
	f.store.mu.Unlock()
}

func TestAllocate_ConcurrentRequestsNeverOverbookABucket(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(4)
	f.store.addTable(4)

	const requests = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[AllocationOutcome]int{}
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 4})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			outcomes[got.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, outcomes[AllocationAccepted])
	assert.Equal(t, requests-2, outcomes[AllocationSuggested])
	n, err := f.store.CountOccupyingInWindow(context.Background(), 4, at(3, 17, 0), at(3, 21, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAllocate_RetriesTakenCodes(t *testing.T) {
	codes := []string{"111111", "111111", "222222"}
	i := 0
	gen := func() (string, error) {
		c := codes[i]
		i++
		return c, nil
	}
	f := newFixture(t, at(2, 12, 0), withCodeGenerator(gen))
	f.store.addTable(4)
	f.store.addTable(4)

	first, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 2})
	require.NoError(t, err)
	second, err := f.engine.Allocate(context.Background(), AllocationRequest{DateTime: at(3, 19, 0), Guests: 2})
	require.NoError(t, err)

	assert.Equal(t, "111111", first.Reservation.Code)
	assert.Equal(t, "222222", second.Reservation.Code)
}

func TestAvailability(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	f.store.addTable(2)
	f.store.addTable(4)
	id := f.store.addTable(4)
	require.NoError(t, f.store.SetTableAvailable(context.Background(), id, false))

	a, err := f.engine.Availability(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]int{2: 1, 4: 2}, a.Buckets)
	assert.Equal(t, 10, a.TotalCapacity)
	assert.Equal(t, 2, a.FreeTables)
	assert.True(t, a.Open)
	assert.Equal(t, "10:00", a.OpensAt)
	assert.Equal(t, "23:00", a.ClosesAt)
}

func TestAddTable_RejectsBadCapacity(t *testing.T) {
	f := newFixture(t, at(2, 12, 0))
	_, err := f.engine.AddTable(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	tbl, err := f.engine.AddTable(context.Background(), 6)
	require.NoError(t, err)
	assert.NotZero(t, tbl.ID)
	assert.True(t, f.store.table(tbl.ID).Free())
}
