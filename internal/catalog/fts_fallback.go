//go:build !sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(_ *sql.DB) error {
	return nil
}

func ftsUpsert(_ *sql.Tx, _ Row, _ string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches query as a literal substring of title, summary, body or
// any label. Title matches come first, then newest first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + likeEscaper.Replace(query) + "%"
	rows, err := db.conn.Query(`
		SELECT d.id, d.title, d.summary, substr(d.body, 1, 200), d.publish_date
		FROM documents d
		WHERE d.title LIKE ? ESCAPE '\'
		   OR d.summary LIKE ? ESCAPE '\'
		   OR d.body LIKE ? ESCAPE '\'
		   OR EXISTS (
				SELECT 1 FROM document_labels l
				WHERE l.document_id = d.id AND l.label LIKE ? ESCAPE '\'
		   )
		ORDER BY (d.title LIKE ? ESCAPE '\') DESC, d.publish_date DESC, d.id ASC
		LIMIT ?
	`, like, like, like, like, like, limit)
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
