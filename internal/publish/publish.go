// Package publish writes a snapshot out as a static site: one HTML page per
// published document plus JSON listings.
package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"
	"path"
	"time"

	"github.com/starford/quill/internal/index"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/render"
	"github.com/starford/quill/internal/site"
	"github.com/starford/quill/internal/storage"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- if .Summary}}
<meta name="description" content="{{.Summary}}">
{{- end}}
</head>
<body>
<article>
<header>
<h1>{{.Title}}</h1>
<time datetime="{{.Date}}">{{.Date}}</time>
{{- range .Tags}}
<span class="tag">{{.}}</span>
{{- end}}
</header>
{{.Body}}
</article>
</body>
</html>
`))

type page struct {
	Title   string
	Summary string
	Date    string
	Tags    []string
	Body    template.HTML
}

// Entry is one document in a JSON listing.
type Entry struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Categories  []string  `json:"categories"`
	Tags        []string  `json:"tags"`
	PublishDate time.Time `json:"publish_date"`
}

// Listing is the body of index.json and the per-label files.
type Listing struct {
	Label     string  `json:"label,omitempty"`
	Documents []Entry `json:"documents"`
}

// Stats summarises an export.
type Stats struct {
	Pages    int
	Listings int
}

// Export writes every published document of snap to out. Drafts are never
// written. Listings follow the chronological order of the index.
func Export(snap *site.Snapshot, out storage.Writer) (Stats, error) {
	var st Stats
	if snap == nil || snap.Index == nil {
		return st, fmt.Errorf("publish: export: nil snapshot")
	}

	docs := snap.Index.Chronological()
	for _, d := range docs {
		rend, err := snap.Rendition(d.ID)
		if err != nil {
			return st, fmt.Errorf("publish: export %s: %w", d.ID, err)
		}
		if err := writePage(out, d, rend); err != nil {
			return st, err
		}
		st.Pages++
	}

	if err := writeListing(out, "index.json", "", docs); err != nil {
		return st, err
	}
	st.Listings++

	n, err := writeLabels(out, "categories", snap.Index.Categories(), snap.Index.ByCategory)
	st.Listings += n
	if err != nil {
		return st, err
	}
	n, err = writeLabels(out, "tags", snap.Index.Tags(), snap.Index.ByTag)
	st.Listings += n
	return st, err
}

// PagePath is where the page of the document with the given id is written.
func PagePath(id string) string {
	return path.Join(id, "index.html")
}

// LabelPath is where the listing for label under dir is written. Labels
// are escaped so that slashes and spaces stay inside one file name.
func LabelPath(dir, label string) string {
	return path.Join(dir, url.PathEscape(label)+".json")
}

func writePage(out storage.Writer, d *models.Document, rend render.Rendition) error {
	body, err := render.HTML(rend)
	if err != nil {
		return fmt.Errorf("publish: render %s: %w", d.ID, err)
	}
	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, page{
		Title:   d.Title,
		Summary: d.Summary,
		Date:    d.PublishDate.Format(time.DateOnly),
		Tags:    d.Tags,
		Body:    template.HTML(body),
	})
	if err != nil {
		return fmt.Errorf("publish: page %s: %w", d.ID, err)
	}
	if err := out.Write(PagePath(d.ID), buf.Bytes()); err != nil {
		return fmt.Errorf("publish: write %s: %w", d.ID, err)
	}
	return nil
}

func writeLabels(out storage.Writer, dir string, labels []index.LabelCount, docsFor func(string) []*models.Document) (int, error) {
	for i, lc := range labels {
		if err := writeListing(out, LabelPath(dir, lc.Label), lc.Label, docsFor(lc.Label)); err != nil {
			return i, err
		}
	}
	return len(labels), nil
}

func writeListing(out storage.Writer, p, label string, docs []*models.Document) error {
	l := Listing{Label: label, Documents: make([]Entry, 0, len(docs))}
	for _, d := range docs {
		l.Documents = append(l.Documents, Entry{
			ID:          d.ID,
			URL:         "/" + d.ID + "/",
			Title:       d.Title,
			Summary:     d.Summary,
			Categories:  d.Categories,
			Tags:        d.Tags,
			PublishDate: d.PublishDate,
		})
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("publish: encode %s: %w", p, err)
	}
	if err := out.Write(p, append(data, '\n')); err != nil {
		return fmt.Errorf("publish: write %s: %w", p, err)
	}
	return nil
}
