package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

// WaitingRepo provides data access to the waiting_entries table, the
// walk-in queue ordered by entry_time.
type WaitingRepo struct {
	db *sql.DB
}

// NewWaitingRepo returns a new WaitingRepo bound to the given database.
func NewWaitingRepo(db *sql.DB) *WaitingRepo { return &WaitingRepo{db: db} }

const entryColumns = `code, user_id, entry_time, guests, status, notified_at`

func scanEntry(row interface{ Scan(...any) error }) (*model.WaitingEntry, error) {
	var (
		e        model.WaitingEntry
		status   string
		notified sql.NullTime
	)
	if err := row.Scan(&e.Code, &e.UserID, &e.EntryTime, &e.Guests, &status, &notified); err != nil {
		return nil, err
	}
	e.Status = model.WaitingStatus(status)
	e.EntryTime = e.EntryTime.UTC()
	e.NotifiedAt = nullTime(&notified)
	return &e, nil
}

// CreateEntry inserts e.
func (r *WaitingRepo) CreateEntry(ctx context.Context, e *model.WaitingEntry) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO waiting_entries (code, user_id, entry_time, guests, status) VALUES (?, ?, ?, ?, ?)`,
		e.Code, e.UserID, e.EntryTime.UTC(), e.Guests, string(e.Status),
	)
	return translate(err)
}

// GetEntry loads one entry, locking its row inside a transaction.
func (r *WaitingRepo) GetEntry(ctx context.Context, code string) (*model.WaitingEntry, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM waiting_entries WHERE code = ?`+forUpdate(ctx), code)
	e, err := scanEntry(row)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// ListEntriesByStatus lists entries in status in FIFO order.
func (r *WaitingRepo) ListEntriesByStatus(ctx context.Context, status model.WaitingStatus) ([]model.WaitingEntry, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+entryColumns+` FROM waiting_entries WHERE status = ? ORDER BY entry_time, code`,
		string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WaitingEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// UpdateEntryStatus moves code from one status to another.
func (r *WaitingRepo) UpdateEntryStatus(ctx context.Context, code string, from, to model.WaitingStatus) error {
	return expectOne(conn(ctx, r.db).ExecContext(ctx,
		`UPDATE waiting_entries SET status = ? WHERE code = ? AND status = ?`,
		string(to), code, string(from),
	))
}

// MarkEntryNotified promotes a queued entry to NOTIFIED and records when.
func (r *WaitingRepo) MarkEntryNotified(ctx context.Context, code string, at time.Time) error {
	return expectOne(conn(ctx, r.db).ExecContext(ctx,
		`UPDATE waiting_entries SET status = 'NOTIFIED', notified_at = ? WHERE code = ? AND status = 'WAITING'`,
		at.UTC(), code,
	))
}
