// Package render turns a document body into an ordered sequence of markup
// and resolved-directive segments. Directives whose kind has no resolver,
// or whose resolver fails, become placeholders and produce a warning; they
// never abort rendering.
package render

import (
	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/shortcode"
)

// ResolveFunc renders one directive to an HTML fragment.
type ResolveFunc func(d models.Directive) (string, error)

// Resolver looks up the ResolveFunc for a directive kind.
type Resolver interface {
	Lookup(kind string) (ResolveFunc, bool)
}

// Rendition is the rendered form of one document.
type Rendition struct {
	DocumentID string                                `json:"document_id"`
	Segments   []models.Segment                      `json:"segments"`
	Warnings   []*apperr.UnresolvedDirectiveWarning `json:"-"`
}

// Renderer is stateless apart from its resolver and safe for concurrent use
// as long as the resolver is.
type Renderer struct {
	resolver Resolver
}

// New returns a Renderer that resolves directives through r. A nil r
// resolves nothing.
func New(r Resolver) *Renderer {
	if r == nil {
		r = NewRegistry()
	}
	return &Renderer{resolver: r}
}

// Render tokenizes doc.Body and resolves each directive. Rendering the same
// document twice yields equal renditions.
func (r *Renderer) Render(doc *models.Document) Rendition {
	out := Rendition{DocumentID: doc.ID}
	for _, tok := range shortcode.Tokenize(doc.Body) {
		if tok.Directive == nil {
			out.Segments = append(out.Segments, models.Segment{Kind: models.SegmentMarkup, Text: tok.Text})
			continue
		}
		d := tok.Directive
		fn, ok := r.resolver.Lookup(d.Kind)
		if !ok {
			out.Segments = append(out.Segments, placeholder(d))
			out.Warnings = append(out.Warnings, &apperr.UnresolvedDirectiveWarning{
				DocumentID: doc.ID, Kind: d.Kind, Offset: d.Offset,
			})
			continue
		}
		html, err := fn(*d)
		if err != nil {
			out.Segments = append(out.Segments, placeholder(d))
			out.Warnings = append(out.Warnings, &apperr.UnresolvedDirectiveWarning{
				DocumentID: doc.ID, Kind: d.Kind, Offset: d.Offset, Err: err,
			})
			continue
		}
		out.Segments = append(out.Segments, models.Segment{Kind: models.SegmentDirective, Text: html, Directive: d})
	}
	return out
}

func placeholder(d *models.Directive) models.Segment {
	return models.Segment{Kind: models.SegmentPlaceholder, Text: d.Raw, Directive: d}
}
