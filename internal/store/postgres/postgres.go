// Package postgres is the PostgreSQL store driver built on the pgx stdlib adapter.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open opens a PostgreSQL connection using the pgx stdlib driver, verifies
// connectivity and applies pending migrations.
func Open(ctx context.Context, dsn string, log zerolog.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, store.Unavailable("postgres.Open", err)
	}
	migrations, err := store.LoadMigrations(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.Migrate(ctx, db, migrations, bind, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// New opens dsn and returns a store.Store over it.
func New(ctx context.Context, dsn string, log zerolog.Logger) (store.Store, error) {
	db, err := Open(ctx, dsn, log)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db, now: utcNow} }

type pgStore struct {
	db  *sql.DB
	now func() time.Time
}

func (s *pgStore) Turns() store.Turns                 { return &turns{db: s.db, now: s.now} }
func (s *pgStore) Facts() store.Facts                 { return &facts{db: s.db} }
func (s *pgStore) Emotions() store.Emotions           { return &emotions{db: s.db, now: s.now} }
func (s *pgStore) Relationships() store.Relationships { return &relationships{db: s.db, now: s.now} }

// HealthPing verifies the connection pool can reach the server.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *pgStore) Close() error { return s.db.Close() }

// Postgres keeps microseconds; truncating up front keeps round trips exact.
func utcNow() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func bind(n int) string { return fmt.Sprintf("$%d", n) }
