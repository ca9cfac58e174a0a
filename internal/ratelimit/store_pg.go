package ratelimit

import (
	"context"
	"database/sql"
	"time"
)

// PGStore implements CounterStore using Postgres. The increment and the
// window reset are a single upsert statement, so concurrent requests from
// multiple server instances never undercount.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed counter store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

// Incr bumps the counter for key, restarting the window if it has expired.
func (s *PGStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-window)

	const query = `
INSERT INTO rate_limit_windows (key, window_start, count)
VALUES ($1, $2, 1)
ON CONFLICT (key) DO UPDATE SET
    count = CASE WHEN rate_limit_windows.window_start <= $3 THEN 1 ELSE rate_limit_windows.count + 1 END,
    window_start = CASE WHEN rate_limit_windows.window_start <= $3 THEN $2 ELSE rate_limit_windows.window_start END
RETURNING count, window_start`

	var count int64
	var windowStart time.Time
	if err := s.DB.QueryRowContext(ctx, query, key, now, cutoff).Scan(&count, &windowStart); err != nil {
		return 0, time.Time{}, err
	}
	return count, windowStart.UTC(), nil
}

// Purge removes windows that expired before cutoff. Expired rows are
// otherwise reset lazily on their next increment.
func (s *PGStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM rate_limit_windows WHERE window_start < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

var _ CounterStore = (*PGStore)(nil)
