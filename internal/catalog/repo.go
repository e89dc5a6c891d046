package catalog

import (
	"fmt"
	"time"
)

// Row is one mirrored document.
type Row struct {
	ID          string
	Path        string
	Title       string
	Summary     string
	Checksum    string
	PublishDate time.Time
	Categories  []string
	Tags        []string
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Snippet     string    `json:"snippet"`
	PublishDate time.Time `json:"publish_date"`
}

// Upsert inserts or replaces a document, its labels and its FTS entry in one
// transaction.
func (db *DB) Upsert(r Row, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (id, path, title, summary, checksum, publish_date, body, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path         = excluded.path,
			title        = excluded.title,
			summary      = excluded.summary,
			checksum     = excluded.checksum,
			publish_date = excluded.publish_date,
			body         = excluded.body,
			synced_at    = excluded.synced_at
	`, r.ID, r.Path, r.Title, r.Summary, r.Checksum, r.PublishDate.UTC(), body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("catalog: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, r, body); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM document_labels WHERE document_id = ?`, r.ID); err != nil {
		return fmt.Errorf("catalog: clear labels: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO document_labels (document_id, kind, label) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("catalog: prepare label insert: %w", err)
	}
	defer stmt.Close()
	for kind, labels := range map[string][]string{KindCategory: r.Categories, KindTag: r.Tags} {
		for _, l := range labels {
			if _, err := stmt.Exec(r.ID, kind, l); err != nil {
				return fmt.Errorf("catalog: insert label: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Delete removes a document, its labels and its FTS entry.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM document_labels WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("catalog: delete labels: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("catalog: delete document: %w", err)
	}
	return tx.Commit()
}

// Checksums returns the stored checksum of every mirrored document.
func (db *DB) Checksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("catalog: checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}
