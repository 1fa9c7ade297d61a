package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS dark_windows (
	id            TEXT PRIMARY KEY,
	bucket_start  TEXT NOT NULL,
	bucket_end    TEXT NOT NULL,
	lat_key       TEXT NOT NULL,
	lon_key       TEXT NOT NULL,
	optimal_times TEXT NOT NULL DEFAULT '[]',
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dark_windows_bucket_key
	ON dark_windows(bucket_start, lat_key, lon_key);
`

// SQLiteStore persists records in a local SQLite database.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply sqlite schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

func (s *SQLiteStore) Read(ctx context.Context, bucketStart time.Time, key LocationKey) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, bucket_start, bucket_end, optimal_times, created_at
		FROM dark_windows
		WHERE bucket_start = ? AND lat_key = ? AND lon_key = ?
		ORDER BY rowid
	`, bucketKey(bucketStart), key.LatString(), key.LonString())
	if err != nil {
		return nil, fmt.Errorf("store: query sqlite: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec                         Record
			start, end, times, createdAt string
		)
		if err := rows.Scan(&rec.ID, &start, &end, &times, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan sqlite row: %w", err)
		}
		if rec.BucketStart, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("store: record %s bucket_start: %w", rec.ID, err)
		}
		if rec.BucketEnd, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, fmt.Errorf("store: record %s bucket_end: %w", rec.ID, err)
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("store: record %s created_at: %w", rec.ID, err)
		}
		if rec.Instants, err = unmarshalInstants([]byte(times)); err != nil {
			return nil, fmt.Errorf("store: record %s: %w", rec.ID, err)
		}
		rec.Key = key
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Write(ctx context.Context, rec Record) error {
	times, err := marshalInstants(rec.Instants)
	if err != nil {
		return fmt.Errorf("store: encode instants: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO dark_windows (id, bucket_start, bucket_end, lat_key, lon_key, optimal_times, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, bucketKey(rec.BucketStart), bucketKey(rec.BucketEnd),
		rec.Key.LatString(), rec.Key.LonString(), string(times),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: insert sqlite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

var _ Store = (*SQLiteStore)(nil)
