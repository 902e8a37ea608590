package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Migration is one numbered schema step, e.g. 0002_fact_category.sql.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// LoadMigrations reads NNNN_description.sql files from fsys in version order.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(e.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
			continue
		}
		body, err := fs.ReadFile(fsys, dir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{
			Version:     version,
			Description: strings.TrimSuffix(parts[1], ".sql"),
			SQL:         string(body),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate applies every migration newer than the recorded schema version.
// Schema evolution is additive only, so older rows stay readable.
// bind renders the nth (1-based) placeholder for the driver's dialect.
func Migrate(ctx context.Context, db *sql.DB, migrations []Migration, bind func(n int) string, log zerolog.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	record := fmt.Sprintf("INSERT INTO schema_migrations (version, description) VALUES (%s, %s)", bind(1), bind(2))
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		tx, err := db.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %04d_%s: %w", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx, record, m.Version, m.Description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %04d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %04d: %w", m.Version, err)
		}
		log.Info().Int("version", m.Version).Str("description", m.Description).Msg("applied migration")
	}
	return nil
}
