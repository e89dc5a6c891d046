// Package site holds the published, queryable form of a pipeline run and
// the process-wide holder that swaps it atomically on rebuild.
package site

import (
	"fmt"
	"slices"
	"time"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/index"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/render"
)

// Snapshot is one complete, immutable build of the site.
type Snapshot struct {
	RunID      string
	BuiltAt    time.Time
	Index      *index.Index
	Renditions map[string]render.Rendition
	Report     *models.Report
}

// GetByIdentifier returns the document with id, drafts included.
func (s *Snapshot) GetByIdentifier(id string) (*models.Document, error) {
	d, ok := s.Index.Get(id)
	if !ok {
		return nil, fmt.Errorf("site: document %q: %w", id, apperr.ErrNotFound)
	}
	return d, nil
}

// Rendition returns the rendered body of the document with id.
func (s *Snapshot) Rendition(id string) (render.Rendition, error) {
	r, ok := s.Renditions[id]
	if !ok {
		return render.Rendition{}, fmt.Errorf("site: rendition %q: %w", id, apperr.ErrNotFound)
	}
	return r, nil
}

// ListByCategory lists published documents in category label, newest first.
func (s *Snapshot) ListByCategory(label string) []*models.Document {
	return s.Index.ByCategory(label)
}

// ListByTag lists published documents tagged label, newest first.
func (s *Snapshot) ListByTag(label string) []*models.Document {
	return s.Index.ByTag(label)
}

// ListChronological returns one page of published documents, newest first.
func (s *Snapshot) ListChronological(page, pageSize int) index.Page {
	return s.Index.Page(page, pageSize)
}

// Diff compares the published documents of prev and next by checksum. It
// returns identifiers that are new or changed in next and identifiers that
// next no longer publishes. A nil prev counts as empty.
func Diff(prev, next *Snapshot) (changed, removed []string) {
	old := map[string]string{}
	if prev != nil {
		for _, d := range prev.Index.All() {
			if !d.Draft {
				old[d.ID] = d.Checksum
			}
		}
	}
	for _, d := range next.Index.All() {
		if d.Draft {
			continue
		}
		if cs, ok := old[d.ID]; !ok || cs != d.Checksum {
			changed = append(changed, d.ID)
		}
		delete(old, d.ID)
	}
	for id := range old {
		removed = append(removed, id)
	}
	slices.Sort(removed)
	return changed, removed
}
