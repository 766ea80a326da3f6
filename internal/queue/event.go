// Package queue defines the notification payloads exchanged over the message
// broker and the publisher/consumer pair that moves them.
package queue

// Exchange and routing keys used for seating notifications. The exchange is
// a durable topic exchange; the bundled consumer binds to every key.
const (
	Exchange          = "seating"
	ExchangeKind      = "topic"
	NotificationQueue = "seating.notifications"

	RoutingTableReady = "party.table_ready"
	RoutingReminder   = "reservation.reminder"
	RoutingOverstay   = "visit.overstay"
)

// TableReadyEvent is published when the dispatcher promises a freed table to
// a waiting party. The party must check in before ExpiresAt or the table is
// offered to the next party.
type TableReadyEvent struct {
	Code       string `json:"code"`
	Kind       string `json:"kind"`
	UserID     uint64 `json:"user_id"`
	Guests     int    `json:"guests"`
	TableID    int64  `json:"table_id"`
	NotifiedAt string `json:"notified_at"`
	ExpiresAt  string `json:"expires_at"`
}

// ReminderEvent is published once per reservation shortly before it is due.
type ReminderEvent struct {
	Code     string `json:"code"`
	UserID   uint64 `json:"user_id"`
	Guests   int    `json:"guests"`
	DateTime string `json:"date_time"`
}

// OverstayAlertEvent is an operator-facing alert for a party that has been
// seated longer than the configured maximum. It does not change the visit.
type OverstayAlertEvent struct {
	Code          string `json:"code"`
	TableID       int64  `json:"table_id"`
	UserID        uint64 `json:"user_id"`
	StartedAt     string `json:"started_at"`
	SeatedMinutes int    `json:"seated_minutes"`
	RaisedAt      string `json:"raised_at"`
}
