// Package catalog mirrors the published documents of the current site
// snapshot into SQLite and serves full-text search over them.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	path         TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	checksum     TEXT NOT NULL DEFAULT '',
	publish_date DATETIME NOT NULL,
	body         TEXT NOT NULL DEFAULT '',
	synced_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS document_labels (
	document_id TEXT NOT NULL,
	kind        TEXT NOT NULL,
	label       TEXT NOT NULL,
	UNIQUE(document_id, kind, label)
);

CREATE INDEX IF NOT EXISTS idx_documents_date ON documents(publish_date DESC, id);
CREATE INDEX IF NOT EXISTS idx_labels_lookup ON document_labels(kind, label);
`

// Label kinds stored in document_labels.
const (
	KindCategory = "category"
	KindTag      = "tag"
)

// DB wraps a sql.DB with catalog operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
