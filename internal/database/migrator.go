package database

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrationLockID serialises migrations across instances starting together
const migrationLockID = 727_001

// Migrator applies the SQL files in a directory once each, in name order.
// Files are read at runtime so schema fixes ship without a rebuild.
type Migrator struct {
	pool *pgxpool.Pool
	dir  fs.FS
}

func NewMigrator(pool *pgxpool.Pool, dir string) *Migrator {
	return &Migrator{
		pool: pool,
		dir:  os.DirFS(dir),
	}
}

// RunMigrations executes all pending migrations. Each file runs in its own
// transaction together with its schema_migrations row.
func (m *Migrator) RunMigrations(ctx context.Context) error {
	log.Println("[Migrate] Starting database migrations...")

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID)

	if err := createMigrationsTable(ctx, conn.Conn()); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, conn.Conn())
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	entries, err := fs.ReadDir(m.dir, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}

	pending := Pending(files, applied)
	for _, filename := range pending {
		content, err := fs.ReadFile(m.dir, filename)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		log.Printf("[Migrate] Running: %s", filename)
		err = pgx.BeginFunc(ctx, conn.Conn(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (filename) VALUES ($1) ON CONFLICT (filename) DO NOTHING`,
				filename)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to run migration %s: %w", filename, err)
		}
	}

	if len(pending) > 0 {
		log.Printf("[Migrate] Applied %d new migration(s)", len(pending))
	} else {
		log.Println("[Migrate] Database is up to date")
	}
	return nil
}

// Pending returns the .sql files not yet applied, sorted by name. Files with
// "reset" in the name are destructive and never run automatically.
func Pending(files []string, applied map[string]bool) []string {
	var pending []string
	for _, f := range files {
		if !strings.HasSuffix(f, ".sql") || strings.Contains(f, "reset") || applied[f] {
			continue
		}
		pending = append(pending, f)
	}
	sort.Strings(pending)
	return pending
}

func createMigrationsTable(ctx context.Context, conn *pgx.Conn) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT now()
		)`)
	return err
}

func appliedMigrations(ctx context.Context, conn *pgx.Conn) (map[string]bool, error) {
	rows, err := conn.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	filenames, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(filenames))
	for _, f := range filenames {
		applied[f] = true
	}
	return applied, nil
}
