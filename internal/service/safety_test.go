package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

func TestNewSafetyChecker_SelectsStrategy(t *testing.T) {
	s := newFakeStore()
	assert.IsType(t, &CapacitySum{}, NewSafetyChecker("", s, time.Hour))
	assert.IsType(t, &CapacitySum{}, NewSafetyChecker("nonsense", s, time.Hour))
	assert.IsType(t, &CapacitySum{}, NewSafetyChecker(SafetyCapacitySum, s, time.Hour))
	assert.IsType(t, &BestFitSimulation{}, NewSafetyChecker("best_fit", s, time.Hour))
	assert.IsType(t, &BestFitSimulation{}, NewSafetyChecker(" Best-Fit ", s, time.Hour))
}

func TestCapacitySum(t *testing.T) {
	now := at(2, 18, 0)
	s := newFakeStore()
	s.addTable(4)
	s.addTable(6)
	s.addReservation(model.Reservation{Code: "500001", DateTime: now.Add(time.Hour), Guests: 6, Status: model.ReservationActive})
	// Outside the horizon or not ACTIVE: ignored.
	s.addReservation(model.Reservation{Code: "500002", DateTime: now.Add(2 * time.Hour), Guests: 6, Status: model.ReservationActive})
	s.addReservation(model.Reservation{Code: "500003", DateTime: now.Add(30 * time.Minute), Guests: 6, Status: model.ReservationWaitingAtRestaurant})
	s.addReservation(model.Reservation{Code: "500004", DateTime: now.Add(-time.Minute), Guests: 6, Status: model.ReservationActive})

	c := NewSafetyChecker(SafetyCapacitySum, s, 2*time.Hour)
	ctx := context.Background()

	ok, err := c.CanSeat(ctx, 4, now, "")
	require.NoError(t, err)
	assert.True(t, ok, "6 upcoming + 4 fits 10 seats")

	ok, err = c.CanSeat(ctx, 5, now, "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.CanSeat(ctx, 6, now, "500001")
	require.NoError(t, err)
	assert.True(t, ok, "a party is never counted against itself")
}

func TestBestFitSimulation(t *testing.T) {
	now := at(2, 18, 0)
	s := newFakeStore()
	s.addTable(2)
	s.addTable(4)
	busy := s.addTable(6)
	require.NoError(t, s.SetTableAvailable(context.Background(), busy, false))
	s.addReservation(model.Reservation{Code: "500001", DateTime: now.Add(90 * time.Minute), Guests: 3, Status: model.ReservationActive})

	c := NewSafetyChecker(SafetyBestFit, s, 2*time.Hour)
	ctx := context.Background()

	ok, err := c.CanSeat(ctx, 2, now, "")
	require.NoError(t, err)
	assert.True(t, ok, "the 4-top goes to the reservation, the 2-top is left")

	ok, err = c.CanSeat(ctx, 3, now, "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.CanSeat(ctx, 3, now, "500001")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBestFitSimulation_LargestPartyChoosesFirst(t *testing.T) {
	now := at(2, 18, 0)
	s := newFakeStore()
	s.addTable(2)
	s.addTable(4)
	s.addTable(4)
	s.addReservation(model.Reservation{Code: "500001", DateTime: now.Add(10 * time.Minute), Guests: 2, Status: model.ReservationActive})
	s.addReservation(model.Reservation{Code: "500002", DateTime: now.Add(20 * time.Minute), Guests: 4, Status: model.ReservationActive})

	ok, err := NewSafetyChecker(SafetyBestFit, s, 2*time.Hour).CanSeat(context.Background(), 4, now, "")
	require.NoError(t, err)
	assert.True(t, ok, "4 takes a 4-top, 2 takes the 2-top, one 4-top remains")
}

func TestSafety_StoreErrorsPropagate(t *testing.T) {
	s := newFakeStore()
	s.addTable(4)
	s.setFail("ListActiveInWindow", errors.New("timeout"))

	for _, name := range []string{SafetyCapacitySum, SafetyBestFit} {
		ok, err := NewSafetyChecker(name, s, time.Hour).CanSeat(context.Background(), 1, at(2, 18, 0), "")
		assert.Error(t, err, name)
		assert.False(t, ok, name)
	}
}
