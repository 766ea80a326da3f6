package service

import (
	"sync"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/clock"
)

// ExpiryFunc runs when a notified party's check-in window closes.
type ExpiryFunc func(code string, tableID int64, notifiedAt time.Time)

type pendingTimer struct {
	timer      clock.Timer
	tableID    int64
	notifiedAt time.Time
}

// TimerRegistry keeps at most one no-show timer per confirmation code.
// Scheduling a code again replaces its timer; Cancel guarantees the
// callback will not run afterwards.
type TimerRegistry struct {
	clock   clock.Clock
	mu      sync.Mutex
	pending map[string]*pendingTimer
}

// NewTimerRegistry returns a registry whose timers run on c.
func NewTimerRegistry(c clock.Clock) *TimerRegistry {
	return &TimerRegistry{clock: c, pending: make(map[string]*pendingTimer)}
}

// Schedule arms fire to run after d for code.
func (r *TimerRegistry) Schedule(code string, tableID int64, notifiedAt time.Time, d time.Duration, fire ExpiryFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.pending[code]; ok {
		old.timer.Stop()
	}
	pt := &pendingTimer{tableID: tableID, notifiedAt: notifiedAt}
	pt.timer = r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		if r.pending[code] != pt {
			r.mu.Unlock()
			return
		}
		delete(r.pending, code)
		r.mu.Unlock()
		fire(code, tableID, notifiedAt)
	})
	r.pending[code] = pt
}

// Cancel disarms the timer of code and reports whether one was pending.
func (r *TimerRegistry) Cancel(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	pt, ok := r.pending[code]
	if !ok {
		return false
	}
	pt.timer.Stop()
	delete(r.pending, code)
	return true
}

// Pending reports whether code has an armed timer.
func (r *TimerRegistry) Pending(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[code]
	return ok
}

// StopAll disarms every timer.
func (r *TimerRegistry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, pt := range r.pending {
		pt.timer.Stop()
		delete(r.pending, code)
	}
}
