// Package graphstore is the SQLite implementation of the graph-database
// boundary: entities, edges, justification records, ontology, exported
// snapshots, and the lease table backing the overlay lock. The pipeline only
// sees it through the narrow orchestrator ports.
package graphstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"justify/internal/logging"
)

// DB wraps the SQLite connection.
type DB struct {
	conn   *sql.DB
	logger *logging.Logger
	path   string
}

// Open opens or creates the database at <root>/.justify/justify.db and
// applies the schema.
func Open(root string, logger *logging.Logger) (*DB, error) {
	dir := filepath.Join(root, ".justify")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create .justify directory: %w", err)
	}
	return OpenPath(filepath.Join(dir, "justify.db"), logger)
}

// OpenPath opens or creates the database at an explicit path.
func OpenPath(path string, logger *logging.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	db := &DB{conn: conn, logger: logger, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the connection.
func (db *DB) Close() error { return db.conn.Close() }

func (db *DB) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			org        TEXT NOT NULL,
			repo       TEXT NOT NULL,
			id         TEXT NOT NULL,
			kind       TEXT NOT NULL,
			name       TEXT NOT NULL,
			file_path  TEXT NOT NULL,
			start_line INTEGER NOT NULL DEFAULT 0,
			end_line   INTEGER NOT NULL DEFAULT 0,
			signature  TEXT NOT NULL DEFAULT '',
			body       TEXT NOT NULL DEFAULT '',
			parent     TEXT NOT NULL DEFAULT '',
			complexity INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (org, repo, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_file
			ON entities (org, repo, file_path)`,
		`CREATE TABLE IF NOT EXISTS edges (
			org     TEXT NOT NULL,
			repo    TEXT NOT NULL,
			from_id TEXT NOT NULL,
			to_id   TEXT NOT NULL,
			kind    TEXT NOT NULL,
			PRIMARY KEY (org, repo, from_id, to_id, kind)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_to
			ON edges (org, repo, to_id, kind)`,
		`CREATE TABLE IF NOT EXISTS justifications (
			org        TEXT NOT NULL,
			repo       TEXT NOT NULL,
			entity_id  TEXT NOT NULL,
			payload    TEXT NOT NULL,
			fingerprint TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL,
			PRIMARY KEY (org, repo, entity_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ontology (
			org        TEXT NOT NULL,
			repo       TEXT NOT NULL,
			payload    TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (org, repo)
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			org          TEXT NOT NULL,
			repo         TEXT NOT NULL,
			version      INTEGER NOT NULL,
			digest       TEXT NOT NULL,
			data         BLOB NOT NULL,
			generated_at TEXT NOT NULL,
			PRIMARY KEY (org, repo)
		)`,
		`CREATE TABLE IF NOT EXISTS leases (
			key        TEXT PRIMARY KEY,
			owner      TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
