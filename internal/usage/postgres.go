package usage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS usage_events (
    id     BIGSERIAL    PRIMARY KEY,
    action TEXT         NOT NULL,
    app    TEXT         NOT NULL DEFAULT '',
    at     TIMESTAMPTZ  NOT NULL DEFAULT now(),
    hour   SMALLINT     NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_events_app ON usage_events (app);
`

// PostgresStore persists events in PostgreSQL. It is useful when several
// machines share one usage history.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to dsn and creates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("usage: parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("usage: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("usage: ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("usage: migrate postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Record implements [Store].
func (s *PostgresStore) Record(ctx context.Context, e Event) error {
	const q = `INSERT INTO usage_events (action, app, at, hour) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, q, e.Action, e.App, e.At, e.At.Hour()); err != nil {
		return fmt.Errorf("usage: record: %w", err)
	}
	return nil
}

// Snapshot implements [Store].
func (s *PostgresStore) Snapshot(ctx context.Context) (Snapshot, error) {
	a := newAggregator()

	rows, err := s.pool.Query(ctx, `SELECT action, COUNT(*) FROM usage_events GROUP BY action`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("usage: query actions: %w", err)
	}
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			rows.Close()
			return Snapshot{}, fmt.Errorf("usage: scan actions: %w", err)
		}
		a.action(name, int(n))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("usage: read actions: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT hour, COUNT(*) FROM usage_events GROUP BY hour`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("usage: query hours: %w", err)
	}
	for rows.Next() {
		var h int16
		var n int64
		if err := rows.Scan(&h, &n); err != nil {
			rows.Close()
			return Snapshot{}, fmt.Errorf("usage: scan hours: %w", err)
		}
		a.hour(int(h), int(n))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("usage: read hours: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT app, hour, COUNT(*) FROM usage_events WHERE app <> '' GROUP BY app, hour`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("usage: query apps: %w", err)
	}
	for rows.Next() {
		var name string
		var h int16
		var n int64
		if err := rows.Scan(&name, &h, &n); err != nil {
			rows.Close()
			return Snapshot{}, fmt.Errorf("usage: scan apps: %w", err)
		}
		a.app(name, int(h), int(n))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("usage: read apps: %w", err)
	}
	return a.done(), nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close implements [Store].
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
