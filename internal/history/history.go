// Package history persists a record of finished import attempts. Only attempt
// metadata and tallies are stored; the imported rows themselves never touch
// the database.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultLimit caps a Recent query when the caller passes no limit.
const DefaultLimit = 50

// DBTX is the slice of pgxpool.Pool the store needs. Tests substitute a fake.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Entry is one finished import attempt.
type Entry struct {
	ID          string        `json:"id"`
	WorkspaceID string        `json:"workspaceId"`
	FileName    string        `json:"fileName"`
	TotalRows   int           `json:"totalRows"`
	ValidRows   int           `json:"validRows"`
	Success     int           `json:"successCount"`
	Failed      int           `json:"failedCount"`
	Skipped     int           `json:"skippedCount"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Store reads and writes import history.
type Store struct {
	db DBTX
}

// NewStore creates a history store on top of db.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS import_attempts (
	id            UUID PRIMARY KEY,
	workspace_id  TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	total_rows    INTEGER NOT NULL,
	valid_rows    INTEGER NOT NULL,
	success_count INTEGER NOT NULL,
	failed_count  INTEGER NOT NULL,
	skipped_count INTEGER NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	duration_ms   BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_import_attempts_created_at ON import_attempts (created_at DESC);
`

// EnsureSchema creates the history table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

// Record inserts one finished attempt. A missing ID gets a fresh UUID.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO import_attempts
			(id, workspace_id, file_name, total_rows, valid_rows,
			 success_count, failed_count, skipped_count, error, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.WorkspaceID, entry.FileName, entry.TotalRows, entry.ValidRows,
		entry.Success, entry.Failed, entry.Skipped, entry.Error, entry.Duration.Milliseconds(),
	)
	return err
}

// Recent returns the newest attempts, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, workspace_id, file_name, total_rows, valid_rows,
		       success_count, failed_count, skipped_count, error, duration_ms, created_at
		FROM import_attempts
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e          Entry
			id         pgtype.UUID
			durationMS int64
			createdAt  pgtype.Timestamptz
		)
		if err := rows.Scan(
			&id, &e.WorkspaceID, &e.FileName, &e.TotalRows, &e.ValidRows,
			&e.Success, &e.Failed, &e.Skipped, &e.Error, &durationMS, &createdAt,
		); err != nil {
			return nil, err
		}
		if id.Valid {
			e.ID = uuid.UUID(id.Bytes).String()
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = createdAt.Time
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
