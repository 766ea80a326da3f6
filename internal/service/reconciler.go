package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/lock"
	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/queue"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// Reconciler drives the time-based transitions on a fixed interval:
// reminders, no-shows and over-stay alerts. Several instances may run
// against one store when they share a distributed locker; reminders and
// over-stay alerts are recorded in the store before they count as sent.
type Reconciler struct {
	engine   *Engine
	interval time.Duration
}

// NewReconciler returns a reconciler ticking every interval (60s when
// interval is not positive).
func NewReconciler(e *Engine, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{engine: e, interval: interval}
}

// Run ticks until ctx is cancelled. A failing or panicking task is logged
// and the next tick runs every task again.
func (r *Reconciler) Run(ctx context.Context) {
	log.Printf("reconciler: running every %s", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("reconciler: stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one pass of every task, in order.
func (r *Reconciler) Tick(ctx context.Context) {
	r.runTask(ctx, "reminders", r.SendReminders)
	r.runTask(ctx, "no-shows", r.ExpireNoShows)
	r.runTask(ctx, "over-stay", r.CheckOverstays)
}

func (r *Reconciler) runTask(ctx context.Context, name string, task func(context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("reconciler: %s panicked: %v", name, rec)
		}
	}()
	if err := task(ctx); err != nil {
		log.Printf("reconciler: %s: %v", name, err)
	}
}

// SendReminders notifies reservations starting within the reminder lead.
// Each reservation is reminded once; a failed publish is retried on the
// next tick.
func (r *Reconciler) SendReminders(ctx context.Context) error {
	e := r.engine
	now := e.now()
	due, err := e.store.ListDueForReminder(ctx, now, now.Add(e.policy.ReminderLead))
	if err != nil {
		return err
	}
	var errs []error
	for _, res := range due {
		if err := r.remind(ctx, res.Code); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// remind re-reads the reservation under its party lock so a reminder sent
// by another reconciler since the listing is not sent again.
func (r *Reconciler) remind(ctx context.Context, code string) error {
	e := r.engine
	unlock, err := e.locks.Lock(ctx, lock.PartyKey(code))
	if err != nil {
		return err
	}
	defer unlock()

	res, err := e.store.GetReservation(ctx, code)
	if err != nil {
		return fmt.Errorf("remind %s: %w", code, err)
	}
	if res.ReminderSent || res.Status != model.ReservationActive {
		return nil
	}
	ev := queue.ReminderEvent{
		Code:     res.Code,
		UserID:   res.UserID,
		Guests:   res.Guests,
		DateTime: res.DateTime.Format(time.RFC3339),
	}
	if err := e.notifier.Reminder(ctx, ev); err != nil {
		return fmt.Errorf("remind %s: %w", code, err)
	}
	err = e.store.MarkReminderSent(ctx, code)
	if errors.Is(err, repository.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark reminded %s: %w", code, err)
	}
	return nil
}

// ExpireNoShows marks ACTIVE reservations past their grace period NOSHOW,
// expires notified parties whose check-in window closed, and then offers
// every free table to the waiting list.
func (r *Reconciler) ExpireNoShows(ctx context.Context) error {
	e := r.engine
	now := e.now()
	var errs []error

	overdue, err := e.store.ListOverdueReservations(ctx, now.Add(-e.policy.NoShowGrace))
	if err != nil {
		errs = append(errs, err)
	}
	for _, res := range overdue {
		if err := r.markNoShow(ctx, res.Code); err != nil {
			errs = append(errs, err)
		}
	}

	if err := r.expireNotified(ctx, now); err != nil {
		errs = append(errs, err)
	}

	if _, err := e.DispatchFreeTables(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Reconciler) markNoShow(ctx context.Context, code string) error {
	e := r.engine
	unlock, err := e.locks.Lock(ctx, lock.PartyKey(code))
	if err != nil {
		return err
	}
	defer unlock()
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		return e.store.UpdateReservationStatus(ctx, code, model.ReservationActive, model.ReservationNoShow)
	})
	if errors.Is(err, repository.ErrConflict) {
		// Arrived or cancelled meanwhile.
		return nil
	}
	if err != nil {
		return fmt.Errorf("no-show %s: %w", code, err)
	}
	log.Printf("reconciler: reservation %s marked NOSHOW", code)
	return nil
}

// expireNotified catches notified parties whose timer was lost, for
// example across a restart.
func (r *Reconciler) expireNotified(ctx context.Context, now time.Time) error {
	e := r.engine
	var parties []Party
	res, err := e.store.ListReservationsByStatus(ctx, model.ReservationNotified)
	if err != nil {
		return err
	}
	for i := range res {
		parties = append(parties, reservationParty(&res[i]))
	}
	entries, err := e.store.ListEntriesByStatus(ctx, model.WaitingNotified)
	if err != nil {
		return err
	}
	for i := range entries {
		parties = append(parties, entryParty(&entries[i]))
	}

	var errs []error
	for _, p := range parties {
		if p.NotifiedAt == nil || now.Sub(*p.NotifiedAt) < e.policy.NotifyTimeout {
			continue
		}
		t, err := e.store.TableHeldBy(ctx, p.Code)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if t == nil {
			// Invariant fault: leave the party as it is for an operator.
			log.Printf("reconciler: %s is NOTIFIED but holds no table, left unchanged", p.Code)
			continue
		}
		if _, err := e.ExpireNotification(ctx, p.Code, t.ID, *p.NotifiedAt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CheckOverstays raises one alert per visit seated longer than MaxSeated.
// The alert is claimed on the visit before it is published, so a failed
// publish is not retried. Visit status is never changed.
func (r *Reconciler) CheckOverstays(ctx context.Context) error {
	e := r.engine
	now := e.now()
	visits, err := e.store.ListOpenVisits(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, v := range visits {
		seated := now.Sub(v.StartTime)
		if seated <= e.policy.MaxSeated || v.OverstayAlertedAt != nil {
			continue
		}
		err := e.store.MarkOverstayAlerted(ctx, v.ID, now)
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("claim over-stay %s: %w", v.Code, err))
			continue
		}
		ev := queue.OverstayAlertEvent{
			Code:          v.Code,
			TableID:       v.TableID,
			UserID:        v.UserID,
			StartedAt:     v.StartTime.Format(time.RFC3339),
			SeatedMinutes: int(seated / time.Minute),
			RaisedAt:      now.Format(time.RFC3339),
		}
		log.Printf("reconciler: over-stay at table %d (%s), seated %d minutes", v.TableID, v.Code, ev.SeatedMinutes)
		if err := e.notifier.Overstay(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("over-stay alert %s: %w", v.Code, err))
		}
	}
	return errors.Join(errs...)
}
