package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
)

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// txFromContext returns the transaction started by Store.WithTx, if any.
func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// conn returns the transaction carried by ctx or falls back to db.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return db
}

// forUpdate locks the selected rows when running inside a transaction.
func forUpdate(ctx context.Context) string {
	if _, ok := txFromContext(ctx); ok {
		return " FOR UPDATE"
	}
	return ""
}

// Store bundles every repository behind one transaction boundary. It
// satisfies the seating engine's store contract.
type Store struct {
	db *sql.DB
	*TableRepo
	*CodeRepo
	*ReservationRepo
	*WaitingRepo
	*VisitRepo
}

// NewStore returns a Store bound to the provided database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:              db,
		TableRepo:       NewTableRepo(db),
		CodeRepo:        NewCodeRepo(db),
		ReservationRepo: NewReservationRepo(db),
		WaitingRepo:     NewWaitingRepo(db),
		VisitRepo:       NewVisitRepo(db),
	}
}

// WithTx runs fn inside a transaction. Repository calls made with the
// context passed to fn use that transaction. A nested call joins the
// outer transaction. The transaction is committed when fn returns nil and
// rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrDuplicate
	}
	return err
}

// expectOne turns "no row matched" into ErrConflict for compare-and-set
// updates.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func nullTime(t *sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
