package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/lock"
	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// expiryTimeout bounds the work a no-show timer does once it fires.
const expiryTimeout = 30 * time.Second

// Dispatch reports the party a freed table was promised to, if any.
type Dispatch struct {
	TableID  int64  `json:"table_id"`
	Promoted *Party `json:"promoted,omitempty"`
}

// OnTableFreed offers a free table to the first eligible waiting party.
// Reservations already waiting at the restaurant go first, by scheduled
// time; the walk-in list follows in strict entry order. Parties larger than
// the table are skipped, and the first one the safety check approves is
// notified, the table is held for it and its no-show timer starts. At most
// one party is promoted per call.
func (e *Engine) OnTableFreed(ctx context.Context, tableID int64) (Dispatch, error) {
	unlock, err := e.locks.Lock(ctx, lock.TableKey(tableID))
	if err != nil {
		return Dispatch{TableID: tableID}, err
	}
	now := e.now()
	var promoted *Party
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		promoted = nil
		t, err := e.store.GetTable(ctx, tableID)
		if err != nil {
			return err
		}
		if !t.Free() {
			return nil
		}
		candidates, err := e.dispatchCandidates(ctx)
		if err != nil {
			return err
		}
		for _, p := range candidates {
			if p.Guests > t.Capacity {
				continue
			}
			safe, err := e.safety.CanSeat(ctx, p.Guests, now, p.Code)
			if err != nil {
				return fmt.Errorf("safety check: %w", err)
			}
			if !safe {
				continue
			}
			if err := markPartyNotified(ctx, e.store, p, now); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					// Cancelled or seated since we listed it.
					continue
				}
				return err
			}
			if err := e.store.HoldTable(ctx, t.ID, p.Code); err != nil {
				return err
			}
			p.Status = statusNotified
			at := now
			p.NotifiedAt = &at
			promoted = &p
			return nil
		}
		return nil
	})
	unlock()
	if err != nil {
		return Dispatch{TableID: tableID}, fmt.Errorf("dispatch table %d: %w", tableID, err)
	}
	if promoted == nil {
		return Dispatch{TableID: tableID}, nil
	}

	e.timers.Schedule(promoted.Code, tableID, now, e.policy.NotifyTimeout, e.onNotifyTimeout)
	log.Printf("dispatcher: table %d promised to %s %s (%d guests)", tableID, promoted.Kind, promoted.Code, promoted.Guests)
	e.notifyTableReady(ctx, *promoted, tableID, now)
	return Dispatch{TableID: tableID, Promoted: promoted}, nil
}

// DispatchFreeTables runs OnTableFreed for every free table and returns the
// promotions that happened.
func (e *Engine) DispatchFreeTables(ctx context.Context) ([]Dispatch, error) {
	tables, err := e.store.FreeTables(ctx)
	if err != nil {
		return nil, err
	}
	var (
		out  []Dispatch
		errs []error
	)
	for _, t := range tables {
		d, err := e.OnTableFreed(ctx, t.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if d.Promoted != nil {
			out = append(out, d)
		}
	}
	return out, errors.Join(errs...)
}

func (e *Engine) dispatchCandidates(ctx context.Context) ([]Party, error) {
	waitingRes, err := e.store.ListReservationsByStatus(ctx, model.ReservationWaitingAtRestaurant)
	if err != nil {
		return nil, err
	}
	entries, err := e.store.ListEntriesByStatus(ctx, model.WaitingQueued)
	if err != nil {
		return nil, err
	}
	out := make([]Party, 0, len(waitingRes)+len(entries))
	for i := range waitingRes {
		out = append(out, reservationParty(&waitingRes[i]))
	}
	for i := range entries {
		out = append(out, entryParty(&entries[i]))
	}
	return out, nil
}

func (e *Engine) onNotifyTimeout(code string, tableID int64, notifiedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), expiryTimeout)
	defer cancel()
	if _, err := e.ExpireNotification(ctx, code, tableID, notifiedAt); err != nil {
		log.Printf("dispatcher: expiring %s failed: %v", code, err)
	}
}

// ExpireNotification ends the check-in window of a party notified at
// notifiedAt: the party becomes NOSHOW (reservation) or CANCELLED (walk-in),
// the held table is released and immediately offered to the next party.
// It is a no-op when the party is no longer in that notification, which
// makes a late timer harmless.
func (e *Engine) ExpireNotification(ctx context.Context, code string, tableID int64, notifiedAt time.Time) (bool, error) {
	release, err := e.lockAll(ctx, lock.TableKey(tableID), lock.PartyKey(code))
	if err != nil {
		return false, err
	}
	expired := false
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		expired = false
		p, err := loadParty(ctx, e.store, code)
		if err != nil {
			return err
		}
		if !p.Notified() || p.NotifiedAt == nil || !p.NotifiedAt.Equal(notifiedAt) {
			return nil
		}
		if err := setPartyStatus(ctx, e.store, p, expiredStatus(p)); err != nil {
			return err
		}
		if err := e.store.ReleaseTableHold(ctx, tableID, code); err != nil && !errors.Is(err, repository.ErrConflict) {
			return err
		}
		expired = true
		return nil
	})
	release()
	if err != nil {
		return false, fmt.Errorf("expire %s: %w", code, err)
	}
	if !expired {
		return false, nil
	}
	e.timers.Cancel(code)
	log.Printf("dispatcher: %s did not check in within %s, expired", code, e.policy.NotifyTimeout)
	if _, err := e.OnTableFreed(ctx, tableID); err != nil {
		return true, err
	}
	return true, nil
}
