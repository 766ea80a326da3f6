package model

import "time"

// WaitingStatus enumerates the states of a walk-in waiting-list entry.
type WaitingStatus string

const (
	WaitingQueued    WaitingStatus = "WAITING"
	WaitingNotified  WaitingStatus = "NOTIFIED"
	WaitingCancelled WaitingStatus = "CANCELLED"
	WaitingArrived   WaitingStatus = "ARRIVED"
)

// WaitingEntry is a walk-in party queued for the next suitable table.
// EntryTime defines the FIFO order; NotifiedAt anchors the no-show timeout
// once a table has been promised to the party.
type WaitingEntry struct {
	Code       string        `json:"code"`                  // waiting_entries.code
	UserID     uint64        `json:"user_id"`               // waiting_entries.user_id
	EntryTime  time.Time     `json:"entry_time"`            // waiting_entries.entry_time
	Guests     int           `json:"guests"`                // waiting_entries.guests
	Status     WaitingStatus `json:"status"`                // waiting_entries.status
	NotifiedAt *time.Time    `json:"notified_at,omitempty"` // waiting_entries.notified_at (nullable)
}
