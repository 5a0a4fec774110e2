package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"release_relay/internal/model"
	"release_relay/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements SeenStore backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &UnavailableError{Op: "ping", Err: err}
	}
	return nil
}

// Has reports whether an announcement id has already been delivered.
func (s *SQLite) Has(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seen_announcements WHERE id = ?`, id,
	).Scan(&count)
	if err != nil {
		return false, &UnavailableError{Op: "has", Err: err}
	}
	return count > 0, nil
}

// MarkSeen records a delivered announcement. Inserting an id that is
// already present is a no-op.
func (s *SQLite) MarkSeen(ctx context.Context, entry model.SeenEntry) error {
	var published string
	if !entry.PublishedAt.IsZero() {
		published = entry.PublishedAt.UTC().Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_announcements (id, title, published_at, delivered_at)
		 VALUES (?, ?, ?, ?)`,
		entry.ID, entry.Title, published, entry.DeliveredAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return &UnavailableError{Op: "mark seen", Err: err}
	}
	return nil
}

// Get returns the stored entry for id, or sql.ErrNoRows if absent.
// Used by the history listing, not by the pipeline itself.
func (s *SQLite) Get(ctx context.Context, id string) (*model.SeenEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, published_at, delivered_at FROM seen_announcements WHERE id = ?`, id,
	)
	var e model.SeenEntry
	var published, delivered string
	if err := row.Scan(&e.ID, &e.Title, &published, &delivered); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, &UnavailableError{Op: "get", Err: err}
	}
	if published != "" {
		e.PublishedAt, _ = time.Parse(timeLayout, published)
	}
	e.DeliveredAt, _ = time.Parse(timeLayout, delivered)
	return &e, nil
}
