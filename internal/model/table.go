package model

import "time"

// Table is one physical dining table.
//
// Fields:
//  ID        – primary key identifier.
//  Capacity  – number of seats; tables sharing a capacity form a bucket.
//  Available – false exactly while an ACTIVE visit occupies the table.
//  HeldBy    – confirmation code of the party the table was promised to
//              after a dispatch (nil when not held). A held table is still
//              available but is skipped by every other seating decision.
//  CreatedAt – creation timestamp.
type Table struct {
	ID        int64     `json:"id"`                // dining_tables.id
	Capacity  int       `json:"capacity"`          // dining_tables.capacity
	Available bool      `json:"available"`         // dining_tables.available
	HeldBy    *string   `json:"held_by,omitempty"` // dining_tables.held_by (nullable)
	CreatedAt time.Time `json:"created_at"`        // dining_tables.created_at
}

// Free reports whether the table can be handed to a new party.
func (t Table) Free() bool { return t.Available && t.HeldBy == nil }
