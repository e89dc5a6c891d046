//go:build sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			id UNINDEXED,
			title,
			summary,
			body,
			categories,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, r Row, body string) error {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE id = ?`, r.ID)
	_, err := tx.Exec(`INSERT INTO documents_fts (id, title, summary, body, categories, tags) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Summary, body, strings.Join(r.Categories, " "), strings.Join(r.Tags, " "))
	if err != nil {
		return fmt.Errorf("catalog: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE id = ?`, id)
}

// Search runs an FTS5 query. Title hits weigh most, then summary and
// labels, then body; the snippet is cut from the body.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT documents_fts.id,
		       documents_fts.title,
		       documents_fts.summary,
		       snippet(documents_fts, 3, '<b>', '</b>', '...', 32),
		       d.publish_date
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.id
		WHERE documents_fts MATCH ?
		ORDER BY bm25(documents_fts, 0.0, 10.0, 5.0, 1.0, 3.0, 2.0), d.publish_date DESC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Summary, &r.Snippet, &r.PublishDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
