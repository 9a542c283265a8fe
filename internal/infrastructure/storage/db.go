package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"LeakScanner/internal/domain"
)

// DB bundles a connection with the statement builder matching its dialect.
type DB struct {
	*sql.DB
	driver  string
	builder sq.StatementBuilderType
}

// Open connects to sqlite (default) or postgres and creates missing tables.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = "sqlite"
	}

	var builder sq.StatementBuilderType
	switch driver {
	case "sqlite":
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
	case "postgres":
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	default:
		return nil, fmt.Errorf("%w: storage driver %q", domain.ErrConfiguration, driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One writer keeps check-and-insert free of SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	db := &DB{DB: conn, driver: driver, builder: builder}
	if err := db.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Driver reports the dialect in use.
func (d *DB) Driver() string {
	return d.driver
}

func (d *DB) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS dedup_keys (
			dedup_key  TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS leak_events (
			id            TEXT PRIMARY KEY,
			source        TEXT NOT NULL,
			kind          TEXT NOT NULL,
			title         TEXT NOT NULL,
			link          TEXT NOT NULL,
			severity      TEXT NOT NULL,
			score         INTEGER NOT NULL,
			reasons       TEXT NOT NULL,
			content_hash  TEXT NOT NULL,
			size_bytes    BIGINT NOT NULL,
			artifact_path TEXT NOT NULL,
			attributes    TEXT NOT NULL,
			ts            TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS leak_events_ts ON leak_events (ts)`,
	}
	for _, stmt := range statements {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
