// Package audit records every backend operation the dispatcher
// executes, with parameters, outcome and timing, and serves the
// operation history queries.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS operations (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	operation_type    TEXT NOT NULL,
	parameters        TEXT,
	result            TEXT,
	status            TEXT NOT NULL,
	error_message     TEXT,
	user_query        TEXT,
	created_at        DATETIME NOT NULL,
	execution_time_ms INTEGER
);
CREATE INDEX IF NOT EXISTS idx_operations_type ON operations(operation_type);
CREATE INDEX IF NOT EXISTS idx_operations_status ON operations(status);
CREATE INDEX IF NOT EXISTS idx_operations_created ON operations(created_at);
`

// Entry is one recorded operation.
type Entry struct {
	ID            int64           `json:"id"`
	OperationType string          `json:"operation_type"`
	Parameters    json.RawMessage `json:"parameters,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	Status        string          `json:"status"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	UserQuery     string          `json:"user_query,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Duration      time.Duration   `json:"-"`
}

// Filter narrows a History query. Zero values match everything.
type Filter struct {
	OperationType string
	Status        string
	Limit         int
}

// DefaultHistoryLimit applies when a Filter carries no limit.
const DefaultHistoryLimit = 10

// Store persists operation records in sqlite.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// Open opens (creating if needed) the audit store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("audit store path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit store: %w", err)
	}
	return &Store{db: db, clock: time.Now}, nil
}

// NewWithDB wraps an existing database handle. The schema must already
// exist. Used by tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

// Record stores one operation. A zero CreatedAt is filled with the
// current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (operation_type, parameters, result, status, error_message, user_query, created_at, execution_time_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OperationType,
		nullRaw(e.Parameters),
		nullRaw(e.Result),
		e.Status,
		nullString(e.ErrorMessage),
		nullString(e.UserQuery),
		createdAt,
		e.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record operation %s: %w", e.OperationType, err)
	}
	return nil
}

// History returns recorded operations newest first, narrowed by the
// filter.
func (s *Store) History(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `SELECT id, operation_type, parameters, result, status, error_message, user_query, created_at, execution_time_ms
	          FROM operations WHERE 1=1`
	var args []any
	if f.OperationType != "" {
		query += " AND operation_type = ?"
		args = append(args, f.OperationType)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query operation history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			params     sql.NullString
			result     sql.NullString
			errMsg     sql.NullString
			userQuery  sql.NullString
			durationMS sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.OperationType, &params, &result, &e.Status, &errMsg, &userQuery, &e.CreatedAt, &durationMS); err != nil {
			return nil, err
		}
		if params.Valid {
			e.Parameters = json.RawMessage(params.String)
		}
		if result.Valid {
			e.Result = json.RawMessage(result.String)
		}
		e.ErrorMessage = errMsg.String
		e.UserQuery = userQuery.String
		if durationMS.Valid {
			e.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
