package repository

import (
	"context"
	"database/sql"
)

// CodeRepo records issued confirmation codes. The primary key on
// party_codes keeps a code unique across reservations and waiting entries.
type CodeRepo struct {
	db *sql.DB
}

// NewCodeRepo returns a new CodeRepo bound to the given database.
func NewCodeRepo(db *sql.DB) *CodeRepo { return &CodeRepo{db: db} }

// RegisterCode claims code for a party of the given kind. It returns
// ErrDuplicate when the code was issued before.
func (r *CodeRepo) RegisterCode(ctx context.Context, code, kind string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO party_codes (code, kind, created_at) VALUES (?, ?, UTC_TIMESTAMP())`,
		code, kind,
	)
	return translate(err)
}
