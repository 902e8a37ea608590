// Package sqlite is the embedded store driver built on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const memoryPath = ":memory:"

// Open opens (or creates) the database at path, applies pragmas and runs pending migrations.
func Open(ctx context.Context, path string, log zerolog.Logger) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	dsn := path
	if path != memoryPath {
		// Writers take the lock at BEGIN so busy_timeout covers them.
		dsn = withTxLock(path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == memoryPath {
		// Every connection to :memory: is a distinct database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	migrations, err := store.LoadMigrations(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.Migrate(ctx, db, migrations, func(int) string { return "?" }, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// New opens path and returns a store.Store over it.
func New(ctx context.Context, path string, log zerolog.Logger) (store.Store, error) {
	db, err := Open(ctx, path, log)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(db *sql.DB) store.Store { return &sqliteStore{db: db, now: utcNow} }

type sqliteStore struct {
	db  *sql.DB
	now func() time.Time
}

func (s *sqliteStore) Turns() store.Turns                 { return &turns{db: s.db, now: s.now} }
func (s *sqliteStore) Facts() store.Facts                 { return &facts{db: s.db} }
func (s *sqliteStore) Emotions() store.Emotions           { return &emotions{db: s.db, now: s.now} }
func (s *sqliteStore) Relationships() store.Relationships { return &relationships{db: s.db, now: s.now} }

// HealthPing runs a trivial query; PingContext alone does not touch the file.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func withTxLock(path string) string {
	if strings.Contains(path, "?") {
		return path + "&_txlock=immediate"
	}
	return path + "?_txlock=immediate"
}

func utcNow() time.Time { return time.Now().UTC() }

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
