// Package index builds the immutable in-memory site index: per-category and
// per-tag listings plus a chronological listing, all newest first.
package index

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

// Page size bounds for Index.Page.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Index is safe for concurrent reads once built. It is never mutated; a
// changed collection gets a new Index.
type Index struct {
	byID          map[string]*models.Document
	byCategory    map[string][]*models.Document
	byTag         map[string][]*models.Document
	chronological []*models.Document
	drafts        int
}

// LabelCount is one category or tag with the number of published documents
// carrying it.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Page is one slice of the chronological listing.
type Page struct {
	Items      []*models.Document `json:"items"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	Total      int                `json:"total"`
	TotalPages int                `json:"total_pages"`
}

// Build indexes docs. Drafts are retrievable by Get but appear in no
// listing. Identifiers must be unique. Build does not depend on input order.
func Build(docs []*models.Document) (*Index, error) {
	idx := &Index{
		byID:       make(map[string]*models.Document, len(docs)),
		byCategory: make(map[string][]*models.Document),
		byTag:      make(map[string][]*models.Document),
	}
	for _, d := range docs {
		if _, dup := idx.byID[d.ID]; dup {
			return nil, fmt.Errorf("index: build: %w: %s", apperr.ErrDuplicate, d.ID)
		}
		idx.byID[d.ID] = d
		if d.Draft {
			idx.drafts++
			continue
		}
		idx.chronological = append(idx.chronological, d)
		for _, c := range d.Categories {
			idx.byCategory[c] = append(idx.byCategory[c], d)
		}
		for _, t := range d.Tags {
			idx.byTag[t] = append(idx.byTag[t], d)
		}
	}

	slices.SortFunc(idx.chronological, newestFirst)
	for _, list := range idx.byCategory {
		slices.SortFunc(list, newestFirst)
	}
	for _, list := range idx.byTag {
		slices.SortFunc(list, newestFirst)
	}
	return idx, nil
}

// newestFirst orders by publish date descending, then identifier ascending.
func newestFirst(a, b *models.Document) int {
	if c := b.PublishDate.Compare(a.PublishDate); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Get returns the document with id, drafts included.
func (x *Index) Get(id string) (*models.Document, bool) {
	d, ok := x.byID[id]
	return d, ok
}

// ByCategory lists published documents carrying category label.
func (x *Index) ByCategory(label string) []*models.Document {
	return slices.Clone(x.byCategory[label])
}

// ByTag lists published documents carrying tag label.
func (x *Index) ByTag(label string) []*models.Document {
	return slices.Clone(x.byTag[label])
}

// Chronological lists every published document.
func (x *Index) Chronological() []*models.Document {
	return slices.Clone(x.chronological)
}

// All returns every indexed document, drafts included, ordered by identifier.
func (x *Index) All() []*models.Document {
	out := make([]*models.Document, 0, len(x.byID))
	for _, d := range x.byID {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *models.Document) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Len is the number of published documents.
func (x *Index) Len() int { return len(x.chronological) }

// Drafts is the number of indexed drafts.
func (x *Index) Drafts() int { return x.drafts }

// Page returns page (1-based) of the chronological listing. A page below 1
// is treated as 1; size defaults to DefaultPageSize and is capped at
// MaxPageSize. A page past the end has no items.
func (x *Index) Page(page, size int) Page {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, MaxPageSize)

	total := len(x.chronological)
	p := Page{
		Items:      []*models.Document{},
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}
	start := (page - 1) * size
	if start >= total {
		return p
	}
	end := min(start+size, total)
	p.Items = slices.Clone(x.chronological[start:end])
	return p
}

// Categories returns every category label with its count, sorted by label.
func (x *Index) Categories() []LabelCount { return counts(x.byCategory) }

// Tags returns every tag label with its count, sorted by label.
func (x *Index) Tags() []LabelCount { return counts(x.byTag) }

func counts(m map[string][]*models.Document) []LabelCount {
	out := make([]LabelCount, 0, len(m))
	for label, docs := range m {
		out = append(out, LabelCount{Label: label, Count: len(docs)})
	}
	slices.SortFunc(out, func(a, b LabelCount) int { return cmp.Compare(a.Label, b.Label) })
	return out
}
