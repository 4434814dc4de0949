package postgres

import (
	"context"
	"database/sql"
	"duet/internal/core/services"
)

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// GetExecutor joins the transaction carried by the context when one is
// open, otherwise falls back to the pool.
func GetExecutor(ctx context.Context, db *sql.DB) execer {
	if tx, ok := services.TxFromContext(ctx); ok {
		return tx
	}
	return db
}
