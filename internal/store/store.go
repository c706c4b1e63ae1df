// Package store is the durable system of record for projects, tags and
// per-tool configuration.
//
// The store is an embedded SQLite database (ncruces/go-sqlite3) shared by
// several independently running front ends. Two disciplines keep that safe:
//
//   - Schema evolution is additive-only. Migration compares the live column
//     set to a declarative target and appends what is missing; it never
//     drops, renames or retypes. Migration can therefore never destroy data,
//     at the cost of never being able to fix a wrong column.
//
//   - No long-lived connection. Every operation opens the file, runs one
//     transaction and closes, minimizing cross-process lock windows. Lock
//     contention surfaces as ErrBusy for callers to retry with backoff.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/pl018/project-manager-cli/internal/tags"
)

// schemaVersion is recorded in the schema_version table after migration.
// Bump it when the declarative target schema below gains columns or tables.
const schemaVersion = 2

// Store provides keyed access to the project registry database.
// The zero value is unusable; construct with Open.
type Store struct {
	path string
}

// Open prepares the database at path: parent directories and the file are
// created if absent, missing tables are created, and the additive migration
// runs. A migration failure is returned as *MigrationError and must be
// treated as fatal.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	s := &Store{path: path}

	conn, err := s.connect()
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	// WAL survives in the database file, so one-time setup here covers
	// every later short-lived connection.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := createTables(conn); err != nil {
		return nil, &MigrationError{Path: path, Err: err}
	}
	if err := migrate(conn); err != nil {
		return nil, &MigrationError{Path: path, Err: err}
	}
	if err := seedStarterTags(conn); err != nil {
		return nil, fmt.Errorf("failed to seed starter tags: %w", err)
	}

	return s, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Migrate re-runs the additive schema migration. Running it any number of
// times on a current schema is a no-op that preserves every row unchanged.
func (s *Store) Migrate(ctx context.Context) error {
	conn, err := s.connect()
	if err != nil {
		return classify(err)
	}
	defer conn.Close()

	if err := createTables(conn); err != nil {
		return &MigrationError{Path: s.path, Err: err}
	}
	if err := migrate(conn); err != nil {
		return &MigrationError{Path: s.path, Err: err}
	}
	return nil
}

// connect opens a fresh connection with per-connection pragmas applied.
func (s *Store) connect() (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", "file:"+s.path)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	// Keep the driver-side wait short: contention is reported as ErrBusy
	// and retried with backoff by the caller instead of blocking here.
	pragmas := []string{
		"PRAGMA busy_timeout=250",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// withTx runs fn inside a single transaction on a fresh connection.
// The connection is closed before returning, per the open-transact-close
// concurrency contract.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	conn, err := s.connect()
	if err != nil {
		return classify(err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return classify(err)
	}
	return classify(tx.Commit())
}

// createTables creates any missing tables and indexes. Idempotent.
func createTables(conn *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		uuid TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		root_path TEXT NOT NULL,
		tags TEXT,  -- JSON array of normalized tag names
		ai_name TEXT,
		ai_description TEXT,
		description TEXT,
		notes TEXT,
		favorite INTEGER NOT NULL DEFAULT 0,
		last_opened TEXT,
		open_count INTEGER NOT NULL DEFAULT 0,
		date_added TEXT NOT NULL,
		last_updated TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		color TEXT NOT NULL DEFAULT 'blue'
	);

	CREATE TABLE IF NOT EXISTS tags (
		name TEXT PRIMARY KEY,
		color TEXT NOT NULL,
		icon TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tool_configs (
		project_uuid TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		config TEXT,
		PRIMARY KEY (project_uuid, tool_name),
		FOREIGN KEY (project_uuid) REFERENCES projects(uuid) ON DELETE CASCADE
	);

	-- Root path uniqueness is scoped to live rows: re-registering a path
	-- whose prior occupant was archived is allowed.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_live_path
	    ON projects(root_path) WHERE enabled = 1;

	CREATE INDEX IF NOT EXISTS idx_projects_enabled ON projects(enabled);
	CREATE INDEX IF NOT EXISTS idx_projects_favorite ON projects(favorite);
	`

	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// targetColumns is the declarative schema per table: column name to SQL
// definition. Migration appends whatever the live table lacks and touches
// nothing else.
var targetColumns = map[string]map[string]string{
	"projects": {
		"uuid":           "TEXT",
		"name":           "TEXT NOT NULL DEFAULT ''",
		"root_path":      "TEXT NOT NULL DEFAULT ''",
		"tags":           "TEXT",
		"ai_name":        "TEXT",
		"ai_description": "TEXT",
		"description":    "TEXT",
		"notes":          "TEXT",
		"favorite":       "INTEGER NOT NULL DEFAULT 0",
		"last_opened":    "TEXT",
		"open_count":     "INTEGER NOT NULL DEFAULT 0",
		"date_added":     "TEXT NOT NULL DEFAULT ''",
		"last_updated":   "TEXT NOT NULL DEFAULT ''",
		"enabled":        "INTEGER NOT NULL DEFAULT 1",
		"color":          "TEXT NOT NULL DEFAULT 'blue'",
	},
	"tags": {
		"name":  "TEXT",
		"color": "TEXT NOT NULL DEFAULT ''",
		"icon":  "TEXT NOT NULL DEFAULT ''",
	},
	"tool_configs": {
		"project_uuid": "TEXT",
		"tool_name":    "TEXT",
		"config":       "TEXT",
	},
}

// migrate appends missing columns to each table. Existing columns are never
// dropped, renamed or retyped; the trade is losing the ability to fix a
// wrong column for the guarantee that migration cannot destroy data.
func migrate(conn *sql.DB) error {
	// Deterministic table order keeps failure messages stable.
	names := make([]string, 0, len(targetColumns))
	for name := range targetColumns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, table := range names {
		existing, err := tableColumns(conn, table)
		if err != nil {
			return err
		}

		cols := make([]string, 0, len(targetColumns[table]))
		for col := range targetColumns[table] {
			cols = append(cols, col)
		}
		sort.Strings(cols)

		for _, col := range cols {
			if existing[col] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col, targetColumns[table][col])
			if _, err := conn.Exec(stmt); err != nil {
				return fmt.Errorf("failed to add column %s.%s: %w", table, col, err)
			}
		}
	}

	_, err := conn.Exec(
		"INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (?, ?)",
		schemaVersion, nowString(),
	)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// tableColumns returns the live column set of a table.
func tableColumns(conn *sql.DB, table string) (map[string]bool, error) {
	rows, err := conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notnull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table_info row: %w", err)
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

// seedStarterTags inserts the fixed starter tag set, ignoring existing rows.
func seedStarterTags(conn *sql.DB) error {
	for _, tag := range tags.Starter() {
		_, err := conn.Exec(
			"INSERT OR IGNORE INTO tags (name, color, icon) VALUES (?, ?, ?)",
			tag.Name, tag.Color, tag.Icon,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
