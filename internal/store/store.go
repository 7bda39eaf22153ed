// Package store persists the ingestion pipeline's output in PostgreSQL:
// the report rows table keyed by dimension fingerprint, the import ledger,
// and the anomaly records. It is the only package that speaks SQL.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Store implements ingest.Store on PostgreSQL.
type Store struct {
	db DBTX
}

// New wraps a connection pool (or transaction) in a Store.
func New(db DBTX) *Store {
	return &Store{db: db}
}
