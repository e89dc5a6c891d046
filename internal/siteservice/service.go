// Package siteservice is the read-only query facade shared by the HTTP API
// and the MCP server. Every call works against the snapshot that is current
// when it starts.
package siteservice

import (
	"context"
	"strings"
	"time"

	"github.com/starford/quill/internal/catalog"
	"github.com/starford/quill/internal/index"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/render"
	"github.com/starford/quill/internal/site"
)

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	Categories  []string       `json:"categories"`
	Tags        []string       `json:"tags"`
	PublishDate time.Time      `json:"publish_date"`
	Draft       bool           `json:"draft"`
	Extra       map[string]any `json:"extra,omitempty"`
	Checksum    string         `json:"checksum"`
	Body        string         `json:"body"`
	Warnings    []string       `json:"warnings"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Categories  []string  `json:"categories"`
	Tags        []string  `json:"tags"`
	PublishDate time.Time `json:"publish_date"`
}

// DocumentPage is one page of the chronological listing.
type DocumentPage struct {
	Items      []DocumentListItem `json:"items"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	Total      int                `json:"total"`
	TotalPages int                `json:"total_pages"`
}

// Service answers queries from the holder's current snapshot. Search goes
// to the catalog when one is configured.
type Service struct {
	holder *site.Holder
	db     *catalog.DB
}

// NewService creates a new site service. db may be nil.
func NewService(holder *site.Holder, db *catalog.DB) *Service {
	return &Service{holder: holder, db: db}
}

// Ready reports whether a snapshot is published.
func (s *Service) Ready() bool { return s.holder.Ready() }

// GetDocument returns a document by identifier, drafts included.
func (s *Service) GetDocument(_ context.Context, id string) (*DocumentDetail, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return nil, err
	}
	d, err := snap.GetByIdentifier(id)
	if err != nil {
		return nil, err
	}
	detail := &DocumentDetail{
		ID:          d.ID,
		Path:        d.Path,
		Title:       d.Title,
		Summary:     d.Summary,
		Categories:  nonNilSlice(d.Categories),
		Tags:        nonNilSlice(d.Tags),
		PublishDate: d.PublishDate,
		Draft:       d.Draft,
		Extra:       d.Extra,
		Checksum:    d.Checksum,
		Body:        d.Body,
		Warnings:    []string{},
	}
	if rend, err := snap.Rendition(id); err == nil {
		for _, w := range rend.Warnings {
			detail.Warnings = append(detail.Warnings, w.Error())
		}
	}
	return detail, nil
}

// DocumentHTML assembles the rendered HTML body of a document.
func (s *Service) DocumentHTML(_ context.Context, id string) (string, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return "", err
	}
	rend, err := snap.Rendition(id)
	if err != nil {
		return "", err
	}
	return render.HTML(rend)
}

// ListRecent returns one page of published documents, newest first.
func (s *Service) ListRecent(_ context.Context, page, pageSize int) (*DocumentPage, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return nil, err
	}
	p := snap.ListChronological(page, pageSize)
	return &DocumentPage{
		Items:      listItems(p.Items),
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}, nil
}

// ListByCategory lists published documents in a category, newest first.
func (s *Service) ListByCategory(_ context.Context, label string) ([]DocumentListItem, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return nil, err
	}
	return listItems(snap.ListByCategory(label)), nil
}

// ListByTag lists published documents with a tag, newest first.
func (s *Service) ListByTag(_ context.Context, label string) ([]DocumentListItem, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return nil, err
	}
	return listItems(snap.ListByTag(label)), nil
}

// Categories returns every category with its document count.
func (s *Service) Categories(_ context.Context) ([]index.LabelCount, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return nil, err
	}
	return snap.Index.Categories(), nil
}

// Tags returns every tag with its document count.
func (s *Service) Tags(_ context.Context) ([]index.LabelCount, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return nil, err
	}
	return snap.Index.Tags(), nil
}

// Report returns the build report of the current snapshot.
func (s *Service) Report(_ context.Context) (*models.Report, error) {
	snap, err := s.holder.Current()
	if err != nil {
		return nil, err
	}
	return snap.Report, nil
}

// Search delegates full-text search to the catalog. Without a catalog it
// falls back to a case-insensitive title and summary scan of the snapshot.
func (s *Service) Search(_ context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if s.db != nil {
		res, err := s.db.Search(query, limit)
		return nonNilSlice(res), err
	}
	snap, err := s.holder.Current()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	out := []catalog.SearchResult{}
	for _, d := range snap.Index.Chronological() {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(d.Title), q) || strings.Contains(strings.ToLower(d.Summary), q) {
			out = append(out, catalog.SearchResult{
				ID: d.ID, Title: d.Title, Summary: d.Summary, Snippet: d.Summary, PublishDate: d.PublishDate,
			})
		}
	}
	return out, nil
}

func listItems(docs []*models.Document) []DocumentListItem {
	out := make([]DocumentListItem, len(docs))
	for i, d := range docs {
		out[i] = DocumentListItem{
			ID:          d.ID,
			Title:       d.Title,
			Summary:     d.Summary,
			Categories:  nonNilSlice(d.Categories),
			Tags:        nonNilSlice(d.Tags),
			PublishDate: d.PublishDate,
		}
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
