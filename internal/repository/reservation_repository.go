package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

// ReservationRepo provides data access to the reservations table. Rows are
// addressed by confirmation code. Status changes are compare-and-set: the
// UPDATE only matches when the row is still in the expected status, and a
// miss is reported as ErrConflict. All timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `code, user_id, date_time, guests, table_capacity, status,
	notified_at, reminder_sent, created_at, updated_at`

// occupyingStatuses are the statuses that still hold a table of the bucket.
const occupyingStatuses = `('ACTIVE','WAITING_AT_RESTAURANT','NOTIFIED','ARRIVED')`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var (
		res      model.Reservation
		status   string
		notified sql.NullTime
	)
	err := row.Scan(
		&res.Code, &res.UserID, &res.DateTime, &res.Guests, &res.TableCapacity, &status,
		&notified, &res.ReminderSent, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	res.DateTime = res.DateTime.UTC()
	res.NotifiedAt = nullTime(&notified)
	return &res, nil
}

func (r *ReservationRepo) listReservations(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// CreateReservation inserts res. It returns ErrDuplicate when the code is
// already used.
func (r *ReservationRepo) CreateReservation(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(code, user_id, date_time, guests, table_capacity, status, reminder_sent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q,
		res.Code, res.UserID, res.DateTime.UTC(), res.Guests, res.TableCapacity, string(res.Status),
		res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
	)
	return translate(err)
}

// GetReservation loads one reservation, locking its row inside a
// transaction.
func (r *ReservationRepo) GetReservation(ctx context.Context, code string) (*model.Reservation, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE code = ?`+forUpdate(ctx), code)
	res, err := scanReservation(row)
	if err != nil {
		return nil, translate(err)
	}
	return res, nil
}

// CountOccupyingInWindow counts reservations of one capacity bucket that
// start within [start, end] and still occupy a table.
func (r *ReservationRepo) CountOccupyingInWindow(ctx context.Context, tableCapacity int, start, end time.Time) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE table_capacity = ? AND date_time BETWEEN ? AND ? AND status IN `+occupyingStatuses,
		tableCapacity, start.UTC(), end.UTC(),
	).Scan(&n)
	return n, err
}

// ListActiveInWindow lists ACTIVE reservations starting in [start, end).
func (r *ReservationRepo) ListActiveInWindow(ctx context.Context, start, end time.Time) ([]model.Reservation, error) {
	return r.listReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE status = 'ACTIVE' AND date_time >= ? AND date_time < ?
		 ORDER BY date_time, code`,
		start.UTC(), end.UTC(),
	)
}

// ListReservationsByStatus lists reservations in status, earliest first.
func (r *ReservationRepo) ListReservationsByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	return r.listReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE status = ? ORDER BY date_time, code`,
		string(status),
	)
}

// ListOverdueReservations lists ACTIVE reservations scheduled before cutoff.
func (r *ReservationRepo) ListOverdueReservations(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	return r.listReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE status = 'ACTIVE' AND date_time < ? ORDER BY date_time, code`,
		cutoff.UTC(),
	)
}

// ListDueForReminder lists ACTIVE reservations starting in [from, until)
// that have not been reminded yet.
func (r *ReservationRepo) ListDueForReminder(ctx context.Context, from, until time.Time) ([]model.Reservation, error) {
	return r.listReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE status = 'ACTIVE' AND reminder_sent = 0 AND date_time >= ? AND date_time < ?
		 ORDER BY date_time, code`,
		from.UTC(), until.UTC(),
	)
}

// MarkReminderSent records that the reminder for code went out. ErrConflict
// means it was already recorded.
func (r *ReservationRepo) MarkReminderSent(ctx context.Context, code string) error {
	return expectOne(conn(ctx, r.db).ExecContext(ctx,
		`UPDATE reservations SET reminder_sent = 1, updated_at = UTC_TIMESTAMP() WHERE code = ? AND reminder_sent = 0`,
		code,
	))
}

// UpdateReservationStatus moves code from one status to another.
func (r *ReservationRepo) UpdateReservationStatus(ctx context.Context, code string, from, to model.ReservationStatus) error {
	return expectOne(conn(ctx, r.db).ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = UTC_TIMESTAMP() WHERE code = ? AND status = ?`,
		string(to), code, string(from),
	))
}

// MarkReservationNotified promotes a reservation waiting at the restaurant
// to NOTIFIED and records when.
func (r *ReservationRepo) MarkReservationNotified(ctx context.Context, code string, at time.Time) error {
	return expectOne(conn(ctx, r.db).ExecContext(ctx,
		`UPDATE reservations SET status = 'NOTIFIED', notified_at = ?, updated_at = UTC_TIMESTAMP()
		 WHERE code = ? AND status = 'WAITING_AT_RESTAURANT'`,
		at.UTC(), code,
	))
}
