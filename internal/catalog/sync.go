package catalog

import (
	"log/slog"

	"github.com/starford/quill/internal/logfields"
	"github.com/starford/quill/internal/models"
)

// SyncStats summarises one Sync call.
type SyncStats struct {
	Upserted  int
	Unchanged int
	Removed   int
}

// Sync brings the catalog in line with docs:
//   - new or changed documents (by checksum) are upserted
//   - documents no longer present are deleted
//
// Drafts are skipped so the catalog only ever holds published documents.
func Sync(db *DB, docs []*models.Document, logger *slog.Logger) (SyncStats, error) {
	var st SyncStats
	checksums, err := db.Checksums()
	if err != nil {
		return st, err
	}

	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if d.Draft {
			continue
		}
		seen[d.ID] = struct{}{}
		if cs, ok := checksums[d.ID]; ok && cs == d.Checksum {
			st.Unchanged++
			continue
		}
		row := Row{
			ID:          d.ID,
			Path:        d.Path,
			Title:       d.Title,
			Summary:     d.Summary,
			Checksum:    d.Checksum,
			PublishDate: d.PublishDate,
			Categories:  d.Categories,
			Tags:        d.Tags,
		}
		if err := db.Upsert(row, d.Body); err != nil {
			logger.Warn("catalog: upsert failed", logfields.DocumentID(d.ID), logfields.Error(err))
			continue
		}
		st.Upserted++
		logger.Debug("catalog: upserted", logfields.DocumentID(d.ID))
	}

	for id := range checksums {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := db.Delete(id); err != nil {
			logger.Warn("catalog: delete failed", logfields.DocumentID(id), logfields.Error(err))
			continue
		}
		st.Removed++
		logger.Debug("catalog: removed stale", logfields.DocumentID(id))
	}
	return st, nil
}
