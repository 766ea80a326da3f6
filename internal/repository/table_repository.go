package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

// TableRepo provides data access to the dining_tables table. A table is
// occupied while available = 0 and promised to a notified party while
// held_by is set.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = `id, capacity, available, held_by, created_at`

func scanTable(row interface{ Scan(...any) error }) (*model.Table, error) {
	var (
		t    model.Table
		held sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Capacity, &t.Available, &held, &t.CreatedAt); err != nil {
		return nil, err
	}
	if held.Valid {
		h := held.String
		t.HeldBy = &h
	}
	return &t, nil
}

func (r *TableRepo) listTables(ctx context.Context, query string, args ...any) ([]model.Table, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// BucketCounts maps each capacity to its number of tables.
func (r *TableRepo) BucketCounts(ctx context.Context) (map[int]int, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT capacity, COUNT(*) FROM dining_tables GROUP BY capacity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int]int)
	for rows.Next() {
		var capacity, n int
		if err := rows.Scan(&capacity, &n); err != nil {
			return nil, err
		}
		out[capacity] = n
	}
	return out, rows.Err()
}

// GetTable loads one table, locking its row inside a transaction.
func (r *TableRepo) GetTable(ctx context.Context, id int64) (*model.Table, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+tableColumns+` FROM dining_tables WHERE id = ?`+forUpdate(ctx), id)
	t, err := scanTable(row)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// ListTables returns every table ordered by id.
func (r *TableRepo) ListTables(ctx context.Context) ([]model.Table, error) {
	return r.listTables(ctx, `SELECT `+tableColumns+` FROM dining_tables ORDER BY id`)
}

// CreateTable inserts t and populates its generated ID.
func (r *TableRepo) CreateTable(ctx context.Context, t *model.Table) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO dining_tables (capacity, available, created_at) VALUES (?, ?, ?)`,
		t.Capacity, t.Available, t.CreatedAt.UTC(),
	)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// FreeTables lists available, unheld tables, smallest first.
func (r *TableRepo) FreeTables(ctx context.Context) ([]model.Table, error) {
	return r.listTables(ctx, `SELECT `+tableColumns+` FROM dining_tables
		WHERE available = 1 AND held_by IS NULL ORDER BY capacity, id`)
}

// TotalCapacity sums the seats of every table.
func (r *TableRepo) TotalCapacity(ctx context.Context) (int, error) {
	var total int
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COALESCE(SUM(capacity), 0) FROM dining_tables`).Scan(&total)
	return total, err
}

// SetTableAvailable flips the available flag. It returns ErrConflict when
// the table already has the requested value.
func (r *TableRepo) SetTableAvailable(ctx context.Context, id int64, available bool) error {
	return expectOne(conn(ctx, r.db).ExecContext(ctx,
		`UPDATE dining_tables SET available = ? WHERE id = ? AND available = ?`,
		available, id, !available,
	))
}

// HoldTable promises an available, unheld table to code.
func (r *TableRepo) HoldTable(ctx context.Context, id int64, code string) error {
	return expectOne(conn(ctx, r.db).ExecContext(ctx,
		`UPDATE dining_tables SET held_by = ? WHERE id = ? AND available = 1 AND held_by IS NULL`,
		code, id,
	))
}

// ReleaseTableHold clears a hold placed for code.
func (r *TableRepo) ReleaseTableHold(ctx context.Context, id int64, code string) error {
	return expectOne(conn(ctx, r.db).ExecContext(ctx,
		`UPDATE dining_tables SET held_by = NULL WHERE id = ? AND held_by = ?`,
		id, code,
	))
}

// TableHeldBy returns the table held for code, or nil when there is none.
func (r *TableRepo) TableHeldBy(ctx context.Context, code string) (*model.Table, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+tableColumns+` FROM dining_tables WHERE held_by = ?`, code)
	t, err := scanTable(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
