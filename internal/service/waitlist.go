package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/restaurant-seating/internal/lock"
	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// JoinWaitingList queues a walk-in party and immediately offers it any free
// table. The returned party reflects the state after that dispatch.
func (e *Engine) JoinWaitingList(ctx context.Context, guests int, userID uint64) (Party, error) {
	if guests <= 0 {
		return Party{}, ErrInvalidRequest
	}
	now := e.now()
	if local := now.In(e.location()); !e.hours.IsOpen(local, local.Format("15:04")) {
		return Party{}, ErrRestaurantClosed
	}
	buckets, err := e.store.BucketCounts(ctx)
	if err != nil {
		return Party{}, err
	}
	if len(fittingBuckets(buckets, guests)) == 0 {
		return Party{}, ErrPartyTooLarge
	}

	entry := &model.WaitingEntry{
		UserID:    userID,
		EntryTime: now,
		Guests:    guests,
		Status:    model.WaitingQueued,
	}
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		code, err := e.registerCode(ctx, KindWaiting)
		if err != nil {
			return err
		}
		entry.Code = code
		return e.store.CreateEntry(ctx, entry)
	})
	if err != nil {
		return Party{}, fmt.Errorf("join waiting list: %w", err)
	}
	log.Printf("waitlist: %s joined with %d guests", entry.Code, guests)

	if _, err := e.DispatchFreeTables(ctx); err != nil {
		log.Printf("dispatcher: %v", err)
	}
	if fresh, err := e.store.GetEntry(ctx, entry.Code); err == nil {
		entry = fresh
	}
	return entryParty(entry), nil
}

// Cancel withdraws a party that has not been seated yet. A table held for
// it is released and offered to the next party.
func (e *Engine) Cancel(ctx context.Context, code string) (Party, error) {
	p, err := loadParty(ctx, e.store, code)
	if err != nil {
		return Party{}, err
	}
	if !cancellable(p) {
		return p, ErrNotCancellable
	}

	var heldID int64
	keys := []string{lock.PartyKey(code)}
	if p.Notified() {
		t, err := e.store.TableHeldBy(ctx, code)
		if err != nil {
			return Party{}, err
		}
		if t != nil {
			heldID = t.ID
			keys = append([]string{lock.TableKey(t.ID)}, keys...)
		}
	}
	release, err := e.lockAll(ctx, keys...)
	if err != nil {
		return Party{}, err
	}
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		cur, err := loadParty(ctx, e.store, code)
		if err != nil {
			return err
		}
		if cur.Status != p.Status {
			return errStale
		}
		if err := setPartyStatus(ctx, e.store, cur, statusCancelled); err != nil {
			return err
		}
		if heldID != 0 {
			return e.store.ReleaseTableHold(ctx, heldID, code)
		}
		return nil
	})
	release()
	if errors.Is(err, errStale) || errors.Is(err, repository.ErrConflict) {
		return Party{}, fmt.Errorf("%w: %s changed while cancelling", ErrSeatingContention, code)
	}
	if err != nil {
		return Party{}, fmt.Errorf("cancel %s: %w", code, err)
	}
	e.timers.Cancel(code)
	p.Status = statusCancelled
	log.Printf("waitlist: %s %s cancelled", p.Kind, code)

	if heldID != 0 {
		if _, err := e.OnTableFreed(ctx, heldID); err != nil {
			log.Printf("dispatcher: %v", err)
		}
	}
	return p, nil
}

// PartyStatus is the current view of a confirmation code.
type PartyStatus struct {
	Party       Party        `json:"party"`
	HeldTableID int64        `json:"held_table_id,omitempty"`
	Visit       *model.Visit `json:"visit,omitempty"`
}

// Status reports where the party holding code stands.
func (e *Engine) Status(ctx context.Context, code string) (PartyStatus, error) {
	p, err := loadParty(ctx, e.store, code)
	if err != nil {
		return PartyStatus{}, err
	}
	st := PartyStatus{Party: p}
	if p.Notified() {
		t, err := e.store.TableHeldBy(ctx, code)
		if err != nil {
			return PartyStatus{}, err
		}
		if t != nil {
			st.HeldTableID = t.ID
		}
	}
	if p.Status == statusArrived {
		v, err := e.store.GetOpenVisit(ctx, code)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return PartyStatus{}, err
		}
		st.Visit = v
	}
	return st, nil
}
