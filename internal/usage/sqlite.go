package usage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS usage_events (
    id     INTEGER PRIMARY KEY AUTOINCREMENT,
    action TEXT    NOT NULL,
    app    TEXT    NOT NULL DEFAULT '',
    at     INTEGER NOT NULL,
    hour   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_events_app ON usage_events (app);
`

// SQLiteStore persists events in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("usage: open sqlite: %w", err)
	}
	// Every pooled connection to ":memory:" would see its own database.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("usage: ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("usage: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Record implements [Store].
func (s *SQLiteStore) Record(ctx context.Context, e Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_events (action, app, at, hour) VALUES (?, ?, ?, ?)`,
		e.Action, e.App, e.At.Unix(), e.At.Hour())
	if err != nil {
		return fmt.Errorf("usage: record: %w", err)
	}
	return nil
}

// Snapshot implements [Store].
func (s *SQLiteStore) Snapshot(ctx context.Context) (Snapshot, error) {
	return sqlSnapshot(ctx, s.db.QueryContext)
}

// Close implements [Store].
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func sqlSnapshot(ctx context.Context, query queryFunc) (Snapshot, error) {
	a := newAggregator()
	steps := []struct {
		name string
		sql  string
		scan func(rows *sql.Rows) error
	}{
		{"actions", `SELECT action, COUNT(*) FROM usage_events GROUP BY action`, func(rows *sql.Rows) error {
			var name string
			var n int
			if err := rows.Scan(&name, &n); err != nil {
				return err
			}
			a.action(name, n)
			return nil
		}},
		{"hours", `SELECT hour, COUNT(*) FROM usage_events GROUP BY hour`, func(rows *sql.Rows) error {
			var h, n int
			if err := rows.Scan(&h, &n); err != nil {
				return err
			}
			a.hour(h, n)
			return nil
		}},
		{"apps", `SELECT app, hour, COUNT(*) FROM usage_events WHERE app <> '' GROUP BY app, hour`, func(rows *sql.Rows) error {
			var name string
			var h, n int
			if err := rows.Scan(&name, &h, &n); err != nil {
				return err
			}
			a.app(name, h, n)
			return nil
		}},
	}
	for _, step := range steps {
		rows, err := query(ctx, step.sql)
		if err != nil {
			return Snapshot{}, fmt.Errorf("usage: query %s: %w", step.name, err)
		}
		for rows.Next() {
			if err := step.scan(rows); err != nil {
				rows.Close()
				return Snapshot{}, fmt.Errorf("usage: scan %s: %w", step.name, err)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return Snapshot{}, fmt.Errorf("usage: read %s: %w", step.name, err)
		}
	}
	return a.done(), nil
}
