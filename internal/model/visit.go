package model

import "time"

// VisitStatus enumerates the states of a seated party.
type VisitStatus string

const (
	VisitActive      VisitStatus = "ACTIVE"
	VisitBillPending VisitStatus = "BILL_PENDING"
	VisitFinished    VisitStatus = "FINISHED"
)

// Visit links a seated party to its physical table and bill. It is created
// exactly once per seating and finished when the bill is paid, at which
// point the table is released in the same transaction.
type Visit struct {
	ID        int64       `json:"id"`                 // visits.id
	Code      string      `json:"code"`               // visits.code
	TableID   int64       `json:"table_id"`           // visits.table_id
	UserID    uint64      `json:"user_id"`            // visits.user_id
	BillID    string      `json:"bill_id"`            // visits.bill_id
	StartTime time.Time   `json:"start_time"`         // visits.start_time
	Status    VisitStatus `json:"status"`             // visits.status
	EndTime   *time.Time  `json:"end_time,omitempty"` // visits.end_time (nullable)

	OverstayAlertedAt *time.Time `json:"overstay_alerted_at,omitempty"` // visits.overstay_alerted_at (nullable)
}

// BillStatus enumerates the states of a bill.
type BillStatus string

const (
	BillOpen   BillStatus = "OPEN"
	BillClosed BillStatus = "CLOSED"
)

// Bill is opened when a party is seated and closed on payment. Amounts are
// computed elsewhere; this record only tracks the lifecycle.
type Bill struct {
	ID       string     `json:"id"`                  // bills.id (UUID)
	Code     string     `json:"code"`                // bills.code
	Status   BillStatus `json:"status"`              // bills.status
	OpenedAt time.Time  `json:"opened_at"`           // bills.opened_at
	ClosedAt *time.Time `json:"closed_at,omitempty"` // bills.closed_at (nullable)
}
