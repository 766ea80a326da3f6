package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-seating/internal/clock"
	"github.com/iliyamo/restaurant-seating/internal/policy"
)

const everyDayHours = `
timezone: UTC
weekly:
  monday:    {open: "10:00", close: "23:00"}
  tuesday:   {open: "10:00", close: "23:00"}
  wednesday: {open: "10:00", close: "23:00"}
  thursday:  {open: "10:00", close: "23:00"}
  friday:    {open: "10:00", close: "23:00"}
  saturday:  {open: "10:00", close: "23:00"}
  sunday:    {open: "10:00", close: "23:00"}
`

// monday is 2026-03-02, a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	store    *fakeStore
	clock    *clock.Manual
	notifier *recordingNotifier
	engine   *Engine
}

func newFixture(t *testing.T, now time.Time, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithHours(t, now, everyDayHours, opts...)
}

func newFixtureWithHours(t *testing.T, now time.Time, hoursYAML string, opts ...Option) *fixture {
	t.Helper()
	hours, err := policy.Parse([]byte(hoursYAML))
	require.NoError(t, err)
	f := &fixture{
		store:    newFakeStore(),
		clock:    clock.NewManual(now),
		notifier: &recordingNotifier{},
	}
	all := append([]Option{
		WithClock(f.clock),
		WithNotifier(f.notifier),
		withCodeGenerator(sequentialCodes()),
	}, opts...)
	f.engine = New(f.store, hours, all...)
	t.Cleanup(f.engine.Close)
	return f
}

func sequentialCodes() func() (string, error) {
	var (
		mu sync.Mutex
		n  int
	)
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%06d", 100000+n), nil
	}
}
