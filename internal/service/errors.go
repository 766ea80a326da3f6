package service

import "errors"

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrPartyTooLarge     = errors.New("party is larger than any table")
	ErrRestaurantClosed  = errors.New("restaurant is closed")
	ErrUnknownCode       = errors.New("unknown confirmation code")
	ErrNotCancellable    = errors.New("party can no longer be cancelled")
	ErrNoOpenVisit       = errors.New("no open visit for confirmation code")
	ErrInvariant         = errors.New("seating invariant violated")
	ErrSeatingContention = errors.New("table contention, please retry")

	// errStale marks a transaction that observed state changed by a
	// concurrent writer; the caller re-reads and retries.
	errStale = errors.New("stale state")
)
