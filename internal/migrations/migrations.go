package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Run applies every *.sql file in schema that is not yet recorded in
// schema_migrations, in lexical order, each inside its own transaction.
func Run(ctx context.Context, conn *pgx.Conn, schema fs.FS) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrationFiles, err := Files(schema)
	if err != nil {
		return fmt.Errorf("failed to get migration files: %w", err)
	}

	appliedMigrations, err := getAppliedMigrations(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, file := range migrationFiles {
		version := Version(file)
		if appliedMigrations[version] {
			continue
		}

		content, err := fs.ReadFile(schema, file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if err := apply(ctx, conn, version, string(content)); err != nil {
			return fmt.Errorf("migration %s: %w", file, err)
		}

		slog.Info("applied migration", slog.String("file", file))
	}

	return nil
}

func apply(ctx context.Context, conn *pgx.Conn, version, statements string) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, statements); err != nil {
		return fmt.Errorf("failed to execute: %w", err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("failed to record: %w", err)
	}
	return tx.Commit(ctx)
}

// Files lists the *.sql files under schema, sorted.
func Files(schema fs.FS) ([]string, error) {
	var files []string

	err := fs.WalkDir(schema, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(d.Name(), ".sql") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func Version(file string) string {
	return strings.TrimSuffix(path.Base(file), ".sql")
}

func getAppliedMigrations(ctx context.Context, conn *pgx.Conn) (map[string]bool, error) {
	rows, err := conn.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}
