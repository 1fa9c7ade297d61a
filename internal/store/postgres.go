package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS dark_windows (
	id            TEXT PRIMARY KEY,
	bucket_start  TIMESTAMPTZ NOT NULL,
	bucket_end    TIMESTAMPTZ NOT NULL,
	lat_key       TEXT NOT NULL,
	lon_key       TEXT NOT NULL,
	optimal_times JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_dark_windows_bucket_key
	ON dark_windows(bucket_start, lat_key, lon_key);
`

// PostgresStore persists records in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, verifies the connection and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("store: postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	s, err := NewPostgresStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool and applies the schema.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchemaSQL); err != nil {
		return nil, fmt.Errorf("store: apply postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Read(ctx context.Context, bucketStart time.Time, key LocationKey) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, bucket_start, bucket_end, optimal_times, created_at
		FROM dark_windows
		WHERE bucket_start = $1 AND lat_key = $2 AND lon_key = $3
		ORDER BY created_at, id
	`, bucketStart.UTC(), key.LatString(), key.LonString())
	if err != nil {
		return nil, fmt.Errorf("store: query postgres: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec   Record
			times []byte
		)
		if err := rows.Scan(&rec.ID, &rec.BucketStart, &rec.BucketEnd, &times, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan postgres row: %w", err)
		}
		if rec.Instants, err = unmarshalInstants(times); err != nil {
			return nil, fmt.Errorf("store: record %s: %w", rec.ID, err)
		}
		rec.BucketStart = rec.BucketStart.UTC()
		rec.BucketEnd = rec.BucketEnd.UTC()
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.Key = key
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Write(ctx context.Context, rec Record) error {
	times, err := marshalInstants(rec.Instants)
	if err != nil {
		return fmt.Errorf("store: encode instants: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO dark_windows (id, bucket_start, bucket_end, lat_key, lon_key, optimal_times, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.BucketStart.UTC(), rec.BucketEnd.UTC(),
		rec.Key.LatString(), rec.Key.LonString(), times, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("store: insert postgres: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
