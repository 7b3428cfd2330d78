package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/rs/zerolog/log"
)

// Migrate applies any *.sql files from migrationsFS that have not been
// applied yet, in lexical order. Applied filenames are tracked in
// schema_migrations so restarts are idempotent. Returns the number of
// migrations applied.
func (s *Store) Migrate(ctx context.Context, migrationsFS fs.FS) (int, error) {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
		   name        TEXT PRIMARY KEY,
		   applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		 )`)
	if err != nil {
		return 0, fmt.Errorf("postgres.Migrate: ensure table: %w", err)
	}

	names, err := fs.Glob(migrationsFS, "*.sql")
	if err != nil {
		return 0, fmt.Errorf("postgres.Migrate: glob: %w", err)
	}
	sort.Strings(names)

	applied := 0
	for _, name := range names {
		var exists bool
		err = s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`,
			name,
		).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("postgres.Migrate: check %s: %w", name, err)
		}
		if exists {
			continue
		}

		sql, readErr := fs.ReadFile(migrationsFS, name)
		if readErr != nil {
			return applied, fmt.Errorf("postgres.Migrate: read %s: %w", name, readErr)
		}

		tx, txErr := s.pool.Begin(ctx)
		if txErr != nil {
			return applied, fmt.Errorf("postgres.Migrate: begin %s: %w", name, txErr)
		}

		if _, execErr := tx.Exec(ctx, string(sql)); execErr != nil {
			_ = tx.Rollback(ctx)
			return applied, fmt.Errorf("postgres.Migrate: apply %s: %w", name, execErr)
		}
		if _, execErr := tx.Exec(ctx,
			`INSERT INTO schema_migrations (name) VALUES ($1)`, name,
		); execErr != nil {
			_ = tx.Rollback(ctx)
			return applied, fmt.Errorf("postgres.Migrate: record %s: %w", name, execErr)
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return applied, fmt.Errorf("postgres.Migrate: commit %s: %w", name, commitErr)
		}

		log.Info().Str("migration", name).Msg("applied migration")
		applied++
	}

	return applied, nil
}
