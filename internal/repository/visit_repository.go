package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

// VisitRepo provides data access to the visits and bills tables. A unique
// key on visits.code makes a second seating of the same party fail with
// ErrDuplicate.
type VisitRepo struct {
	db *sql.DB
}

// NewVisitRepo returns a new VisitRepo bound to the given database.
func NewVisitRepo(db *sql.DB) *VisitRepo { return &VisitRepo{db: db} }

const visitColumns = `id, code, table_id, user_id, bill_id, start_time, status, end_time, overstay_alerted_at`

func scanVisit(row interface{ Scan(...any) error }) (*model.Visit, error) {
	var (
		v      model.Visit
		status string
		end    sql.NullTime
		alert  sql.NullTime
	)
	if err := row.Scan(&v.ID, &v.Code, &v.TableID, &v.UserID, &v.BillID, &v.StartTime, &status, &end, &alert); err != nil {
		return nil, err
	}
	v.Status = model.VisitStatus(status)
	v.StartTime = v.StartTime.UTC()
	v.EndTime = nullTime(&end)
	v.OverstayAlertedAt = nullTime(&alert)
	return &v, nil
}

// CreateBill inserts an open bill.
func (r *VisitRepo) CreateBill(ctx context.Context, b *model.Bill) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO bills (id, code, status, opened_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.Code, string(b.Status), b.OpenedAt.UTC(),
	)
	return translate(err)
}

// CloseBill closes an open bill.
func (r *VisitRepo) CloseBill(ctx context.Context, id string, at time.Time) error {
	return expectOne(conn(ctx, r.db).ExecContext(ctx,
		`UPDATE bills SET status = 'CLOSED', closed_at = ? WHERE id = ? AND status = 'OPEN'`,
		at.UTC(), id,
	))
}

// CreateVisit inserts v and populates its generated ID.
func (r *VisitRepo) CreateVisit(ctx context.Context, v *model.Visit) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO visits (code, table_id, user_id, bill_id, start_time, status) VALUES (?, ?, ?, ?, ?, ?)`,
		v.Code, v.TableID, v.UserID, v.BillID, v.StartTime.UTC(), string(v.Status),
	)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = id
	return nil
}

// GetOpenVisit returns the ACTIVE or BILL_PENDING visit of code.
func (r *VisitRepo) GetOpenVisit(ctx context.Context, code string) (*model.Visit, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE code = ? AND status <> 'FINISHED'`+forUpdate(ctx), code)
	v, err := scanVisit(row)
	if err != nil {
		return nil, translate(err)
	}
	return v, nil
}

// ListOpenVisits lists every unfinished visit by id.
func (r *VisitRepo) ListOpenVisits(ctx context.Context) ([]model.Visit, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE status <> 'FINISHED' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// UpdateVisitStatus moves visit id from one status to another. Finishing a
// visit stamps its end time.
func (r *VisitRepo) UpdateVisitStatus(ctx context.Context, id int64, from, to model.VisitStatus, at time.Time) error {
	var end any
	if to == model.VisitFinished {
		end = at.UTC()
	}
	return expectOne(conn(ctx, r.db).ExecContext(ctx,
		`UPDATE visits SET status = ?, end_time = COALESCE(?, end_time) WHERE id = ? AND status = ?`,
		string(to), end, id, string(from),
	))
}

// MarkOverstayAlerted claims the over-stay alert of visit id. ErrConflict
// means the alert was already claimed.
func (r *VisitRepo) MarkOverstayAlerted(ctx context.Context, id int64, at time.Time) error {
	return expectOne(conn(ctx, r.db).ExecContext(ctx,
		`UPDATE visits SET overstay_alerted_at = ? WHERE id = ? AND overstay_alerted_at IS NULL`,
		at.UTC(), id,
	))
}
