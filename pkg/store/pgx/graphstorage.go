package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// DBStorage implements store.JobStore and store.EmbeddingCache on
// PostgreSQL. Embeddings are kept in a pgvector column.
type DBStorage struct {
	conn      pgxIConn
	batchSize int
}

type DBStorageOption func(*DBStorage)

// WithBatchSize limits the number of embeddings written per transaction.
func WithBatchSize(n int) DBStorageOption {
	return func(s *DBStorage) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewDBStorageWithConnection creates a DBStorage on an existing pool or
// connection. The schema is expected to be migrated.
func NewDBStorageWithConnection(conn pgxIConn, opts ...DBStorageOption) *DBStorage {
	s := &DBStorage{conn: conn, batchSize: 500}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}
