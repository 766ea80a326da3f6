package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-seating/internal/lock"
	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// ArrivalOutcome is the result of a check-in.
type ArrivalOutcome string

const (
	ArrivalSuccess       ArrivalOutcome = "SUCCESS"
	ArrivalTableNotReady ArrivalOutcome = "TABLE_NOT_READY_WAIT"
	ArrivalTooEarly      ArrivalOutcome = "TOO_EARLY"
	ArrivalInvalidCode   ArrivalOutcome = "INVALID_CODE"
	ArrivalDatabaseError ArrivalOutcome = "DATABASE_ERROR"
)

// maxSeatAttempts bounds how often an arrival re-reads state after losing a
// race for its table.
const maxSeatAttempts = 3

// ArrivalResult is the answer to ProcessArrival. TableID and Visit are set
// on SUCCESS.
type ArrivalResult struct {
	Outcome ArrivalOutcome `json:"outcome"`
	TableID int64          `json:"table_id,omitempty"`
	Party   *Party         `json:"party,omitempty"`
	Visit   *model.Visit   `json:"visit,omitempty"`
}

// ProcessArrival checks in the party holding code.
//
//   - A NOTIFIED party is seated at the table held for it.
//   - A reservation already waiting at the restaurant keeps waiting.
//   - An ACTIVE reservation more than the early-arrival window ahead of its
//     time is turned away as too early.
//   - An ACTIVE reservation is seated at the smallest free table that fits
//     if the safety check approves; otherwise it starts waiting at the
//     restaurant.
//   - A queued walk-in keeps waiting until the dispatcher notifies it.
//
// Anything else, including an already seated party, is an invalid code.
func (e *Engine) ProcessArrival(ctx context.Context, code string) (ArrivalResult, error) {
	for attempt := 0; attempt < maxSeatAttempts; attempt++ {
		res, err := e.tryArrival(ctx, code)
		if !errors.Is(err, errStale) {
			return res, err
		}
	}
	return ArrivalResult{Outcome: ArrivalDatabaseError}, ErrSeatingContention
}

func (e *Engine) tryArrival(ctx context.Context, code string) (ArrivalResult, error) {
	p, err := loadParty(ctx, e.store, code)
	if errors.Is(err, ErrUnknownCode) {
		return ArrivalResult{Outcome: ArrivalInvalidCode}, nil
	}
	if err != nil {
		return ArrivalResult{Outcome: ArrivalDatabaseError}, err
	}
	party := &p

	switch {
	case p.Notified():
		t, err := e.store.TableHeldBy(ctx, code)
		if err != nil {
			return ArrivalResult{Outcome: ArrivalDatabaseError, Party: party}, err
		}
		if t == nil {
			log.Printf("arrival: %s is NOTIFIED but holds no table", code)
			return ArrivalResult{Outcome: ArrivalDatabaseError, Party: party}, fmt.Errorf("%w: %s notified without a held table", ErrInvariant, code)
		}
		return e.seat(ctx, p, t.ID, true)

	case p.Kind == KindReservation && p.Status == string(model.ReservationWaitingAtRestaurant):
		return ArrivalResult{Outcome: ArrivalTableNotReady, Party: party}, nil

	case p.Kind == KindReservation && p.Status == string(model.ReservationActive):
		now := e.now()
		if p.At.Sub(now) > e.policy.EarlyArrival {
			return ArrivalResult{Outcome: ArrivalTooEarly, Party: party}, nil
		}
		safe, err := e.safety.CanSeat(ctx, p.Guests, now, code)
		if err != nil {
			return ArrivalResult{Outcome: ArrivalDatabaseError, Party: party}, err
		}
		if safe {
			t, err := e.bestFreeTable(ctx, p.Guests)
			if err != nil {
				return ArrivalResult{Outcome: ArrivalDatabaseError, Party: party}, err
			}
			if t != nil {
				return e.seat(ctx, p, t.ID, false)
			}
		}
		return e.waitAtRestaurant(ctx, p)

	case p.Kind == KindWaiting && p.Status == string(model.WaitingQueued):
		return ArrivalResult{Outcome: ArrivalTableNotReady, Party: party}, nil
	}
	return ArrivalResult{Outcome: ArrivalInvalidCode, Party: party}, nil
}

// bestFreeTable returns the smallest free table seating guests, or nil.
func (e *Engine) bestFreeTable(ctx context.Context, guests int) (*model.Table, error) {
	tables, err := e.store.FreeTables(ctx)
	if err != nil {
		return nil, err
	}
	var best *model.Table
	for i := range tables {
		t := &tables[i]
		if t.Capacity < guests {
			continue
		}
		if best == nil || t.Capacity < best.Capacity || (t.Capacity == best.Capacity && t.ID < best.ID) {
			best = t
		}
	}
	return best, nil
}

// seat runs the seating transaction: open a bill, mark the party ARRIVED,
// occupy the table and record the visit. held says the table was promised
// to this party by the dispatcher. errStale means the party or the table
// changed under us.
func (e *Engine) seat(ctx context.Context, p Party, tableID int64, held bool) (ArrivalResult, error) {
	release, err := e.lockAll(ctx, lock.TableKey(tableID), lock.PartyKey(p.Code))
	if err != nil {
		return ArrivalResult{Outcome: ArrivalDatabaseError}, err
	}
	defer release()

	now := e.now()
	var visit *model.Visit
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		cur, err := loadParty(ctx, e.store, p.Code)
		if err != nil {
			return err
		}
		if cur.Status != p.Status {
			return errStale
		}
		t, err := e.store.GetTable(ctx, tableID)
		if err != nil {
			return err
		}
		if held {
			if t.HeldBy == nil || *t.HeldBy != p.Code || !t.Available {
				return fmt.Errorf("%w: table %d is not held for %s", ErrInvariant, tableID, p.Code)
			}
		} else if !t.Free() || t.Capacity < p.Guests {
			return errStale
		}

		bill := &model.Bill{ID: uuid.NewString(), Code: p.Code, Status: model.BillOpen, OpenedAt: now}
		if err := e.store.CreateBill(ctx, bill); err != nil {
			return err
		}
		if err := setPartyStatus(ctx, e.store, cur, statusArrived); err != nil {
			return err
		}
		if held {
			if err := e.store.ReleaseTableHold(ctx, tableID, p.Code); err != nil {
				return err
			}
		}
		if err := e.store.SetTableAvailable(ctx, tableID, false); err != nil {
			return err
		}
		visit = &model.Visit{
			Code:      p.Code,
			TableID:   tableID,
			UserID:    p.UserID,
			BillID:    bill.ID,
			StartTime: now,
			Status:    model.VisitActive,
		}
		return e.store.CreateVisit(ctx, visit)
	})
	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, repository.ErrConflict):
		return ArrivalResult{}, errStale
	case errors.Is(err, repository.ErrDuplicate):
		// The code already has a visit.
		return ArrivalResult{Outcome: ArrivalInvalidCode}, nil
	case errors.Is(err, ErrInvariant):
		log.Printf("arrival: %v", err)
		return ArrivalResult{Outcome: ArrivalDatabaseError}, err
	default:
		return ArrivalResult{Outcome: ArrivalDatabaseError}, fmt.Errorf("seat %s: %w", p.Code, err)
	}

	// The party is seated; a timer still pending for it must not fire.
	e.timers.Cancel(p.Code)
	p.Status = statusArrived
	log.Printf("arrival: %s %s seated at table %d", p.Kind, p.Code, tableID)
	return ArrivalResult{Outcome: ArrivalSuccess, TableID: tableID, Party: &p, Visit: visit}, nil
}

// waitAtRestaurant parks an ACTIVE reservation that cannot be seated yet.
func (e *Engine) waitAtRestaurant(ctx context.Context, p Party) (ArrivalResult, error) {
	unlock, err := e.locks.Lock(ctx, lock.PartyKey(p.Code))
	if err != nil {
		return ArrivalResult{Outcome: ArrivalDatabaseError}, err
	}
	defer unlock()
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		return e.store.UpdateReservationStatus(ctx, p.Code, model.ReservationActive, model.ReservationWaitingAtRestaurant)
	})
	if errors.Is(err, repository.ErrConflict) {
		return ArrivalResult{}, errStale
	}
	if err != nil {
		return ArrivalResult{Outcome: ArrivalDatabaseError}, fmt.Errorf("wait at restaurant %s: %w", p.Code, err)
	}
	p.Status = string(model.ReservationWaitingAtRestaurant)
	return ArrivalResult{Outcome: ArrivalTableNotReady, Party: &p}, nil
}

// RequestBill moves the open visit of code to BILL_PENDING.
func (e *Engine) RequestBill(ctx context.Context, code string) (*model.Visit, error) {
	unlock, err := e.locks.Lock(ctx, lock.PartyKey(code))
	if err != nil {
		return nil, err
	}
	defer unlock()
	var v *model.Visit
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		v, err = e.store.GetOpenVisit(ctx, code)
		if err != nil {
			return err
		}
		if v.Status == model.VisitBillPending {
			return nil
		}
		if err := e.store.UpdateVisitStatus(ctx, v.ID, model.VisitActive, model.VisitBillPending, e.now()); err != nil {
			return err
		}
		v.Status = model.VisitBillPending
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoOpenVisit
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Completion is the result of CompleteVisit.
type Completion struct {
	Visit    *model.Visit `json:"visit"`
	Dispatch Dispatch     `json:"dispatch"`
}

// CompleteVisit records payment for the party seated under code: the bill
// is closed, the visit and reservation finish and the table becomes
// available, all in one transaction. The freed table is then offered to the
// waiting list.
func (e *Engine) CompleteVisit(ctx context.Context, code string) (Completion, error) {
	open, err := e.store.GetOpenVisit(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return Completion{}, ErrNoOpenVisit
	}
	if err != nil {
		return Completion{}, err
	}

	release, err := e.lockAll(ctx, lock.TableKey(open.TableID), lock.PartyKey(code))
	if err != nil {
		return Completion{}, err
	}
	now := e.now()
	var v *model.Visit
	err = e.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		v, err = e.store.GetOpenVisit(ctx, code)
		if err != nil {
			return err
		}
		p, err := loadParty(ctx, e.store, code)
		if err != nil {
			return err
		}
		if err := e.store.CloseBill(ctx, v.BillID, now); err != nil {
			return err
		}
		if err := e.store.UpdateVisitStatus(ctx, v.ID, v.Status, model.VisitFinished, now); err != nil {
			return err
		}
		if p.Kind == KindReservation {
			if err := e.store.UpdateReservationStatus(ctx, code, model.ReservationArrived, model.ReservationFinished); err != nil {
				return err
			}
		}
		if err := e.store.SetTableAvailable(ctx, v.TableID, true); err != nil {
			return err
		}
		v.Status = model.VisitFinished
		end := now
		v.EndTime = &end
		return nil
	})
	release()
	if errors.Is(err, repository.ErrNotFound) {
		return Completion{}, ErrNoOpenVisit
	}
	if err != nil {
		return Completion{}, fmt.Errorf("complete visit %s: %w", code, err)
	}
	log.Printf("arrival: %s paid, table %d released after %s", code, v.TableID, now.Sub(v.StartTime).Round(time.Minute))

	d, err := e.OnTableFreed(ctx, v.TableID)
	if err != nil {
		// The reconciler sweeps free tables on its next tick.
		log.Printf("dispatcher: %v", err)
	}
	return Completion{Visit: v, Dispatch: d}, nil
}
