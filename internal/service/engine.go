// Package service implements the seating engine: reservation allocation,
// the seating safety check, the waiting-list dispatcher, the arrival state
// machine and the background reconciler. Persistence, locking, time and
// notifications are injected so the engine can run against MySQL in
// production and in-memory fakes in tests.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/clock"
	"github.com/iliyamo/restaurant-seating/internal/lock"
	"github.com/iliyamo/restaurant-seating/internal/queue"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// Notifier delivers customer and operator notifications. Delivery is fire
// and forget: a failed publish never rolls back a state change.
type Notifier interface {
	TableReady(ctx context.Context, ev queue.TableReadyEvent) error
	Reminder(ctx context.Context, ev queue.ReminderEvent) error
	Overstay(ctx context.Context, ev queue.OverstayAlertEvent) error
}

type nopNotifier struct{}

func (nopNotifier) TableReady(context.Context, queue.TableReadyEvent) error  { return nil }
func (nopNotifier) Reminder(context.Context, queue.ReminderEvent) error      { return nil }
func (nopNotifier) Overstay(context.Context, queue.OverstayAlertEvent) error { return nil }

// Engine is the seating engine. All of its methods are safe for concurrent
// use.
type Engine struct {
	store    Store
	hours    HoursPolicy
	clock    clock.Clock
	locks    Locker
	notifier Notifier
	safety   SafetyChecker
	policy   Policy
	timers   *TimerRegistry
	newCode  func() (string, error)

	safetyName string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLocker overrides the in-process lock arena.
func WithLocker(l Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locks = l
		}
	}
}

// WithNotifier sets where table-ready, reminder and over-stay messages go.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithPolicy overrides the timing rules. Zero fields keep their defaults.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p.withDefaults() }
}

// WithSafetyStrategy selects the safety check by name (see
// NewSafetyChecker).
func WithSafetyStrategy(name string) Option {
	return func(e *Engine) { e.safetyName = name }
}

// withCodeGenerator replaces the confirmation code source.
func withCodeGenerator(f func() (string, error)) Option {
	return func(e *Engine) { e.newCode = f }
}

// New builds an engine over store and hours.
func New(store Store, hours HoursPolicy, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		hours:    hours,
		clock:    clock.NewSystem(),
		locks:    lock.NewLocal(),
		notifier: nopNotifier{},
		policy:   DefaultPolicy(),
		newCode:  newConfirmationCode,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.timers = NewTimerRegistry(e.clock)
	e.safety = NewSafetyChecker(e.safetyName, store, e.policy.SafetyHorizon)
	return e
}

// Policy returns the rules the engine runs with.
func (e *Engine) Policy() Policy { return e.policy }

// Close stops every pending no-show timer. Notified parties are then
// expired by the reconciler of the next process.
func (e *Engine) Close() { e.timers.StopAll() }

// now is truncated to whole seconds so timestamps survive a DATETIME round
// trip unchanged.
func (e *Engine) now() time.Time { return e.clock.Now().UTC().Truncate(time.Second) }

// lockAll acquires keys in order and returns a release for all of them.
func (e *Engine) lockAll(ctx context.Context, keys ...string) (func(), error) {
	held := make([]func(), 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, k := range keys {
		unlock, err := e.locks.Lock(ctx, k)
		if err != nil {
			release()
			return nil, fmt.Errorf("lock %s: %w", k, err)
		}
		held = append(held, unlock)
	}
	return release, nil
}

const maxCodeAttempts = 8

// registerCode picks a fresh confirmation code and records it inside the
// caller's transaction.
func (e *Engine) registerCode(ctx context.Context, kind PartyKind) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := e.newCode()
		if err != nil {
			return "", err
		}
		err = e.store.RegisterCode(ctx, code, string(kind))
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return "", err
		}
	}
	return "", errors.New("could not allocate a unique confirmation code")
}

// newConfirmationCode returns a random 6 digit code.
func newConfirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (e *Engine) notifyTableReady(ctx context.Context, p Party, tableID int64, at time.Time) {
	ev := queue.TableReadyEvent{
		Code:       p.Code,
		Kind:       string(p.Kind),
		UserID:     p.UserID,
		Guests:     p.Guests,
		TableID:    tableID,
		NotifiedAt: at.Format(time.RFC3339),
		ExpiresAt:  at.Add(e.policy.NotifyTimeout).Format(time.RFC3339),
	}
	if err := e.notifier.TableReady(ctx, ev); err != nil {
		log.Printf("[notify] table ready for %s failed: %v", p.Code, err)
	}
}
