package render

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"slices"
	"strings"

	"github.com/starford/quill/internal/models"
)

// Registry is a map-backed Resolver. Register everything before handing the
// registry to a Renderer; lookups are not synchronised with Register.
type Registry struct {
	fns map[string]ResolveFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]ResolveFunc)}
}

// Builtins returns a registry with the youtube, vimeo and figure embeds.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register("youtube", YouTube)
	r.Register("vimeo", Vimeo)
	r.Register("figure", Figure)
	return r
}

// Register binds fn to kind, replacing any previous binding.
func (r *Registry) Register(kind string, fn ResolveFunc) {
	r.fns[kind] = fn
}

// Lookup implements Resolver.
func (r *Registry) Lookup(kind string) (ResolveFunc, bool) {
	fn, ok := r.fns[kind]
	return fn, ok
}

// Kinds lists the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.fns))
	for k := range r.fns {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

var errMissingID = errors.New("missing video id")

// YouTube embeds a video by id (named or first positional parameter).
func YouTube(d models.Directive) (string, error) {
	return iframe(d, "youtube", "https://www.youtube-nocookie.com/embed/")
}

// Vimeo embeds a video by id.
func Vimeo(d models.Directive) (string, error) {
	return iframe(d, "vimeo", "https://player.vimeo.com/video/")
}

func iframe(d models.Directive, class, base string) (string, error) {
	id := strings.TrimSpace(d.Param("id"))
	if id == "" {
		return "", errMissingID
	}
	title := d.Params["label"]
	if title == "" {
		title = d.Params["title"]
	}
	if title == "" {
		title = class + " video"
	}
	return fmt.Sprintf(`<div class="embed %s"><iframe src="%s" title="%s" loading="lazy" allowfullscreen></iframe></div>`,
		class, html.EscapeString(base+url.PathEscape(id)), html.EscapeString(title)), nil
}

// Figure renders an image with an optional caption. The caption comes from
// the caption parameter or, for a paired directive, the inner text.
func Figure(d models.Directive) (string, error) {
	src := strings.TrimSpace(d.Param("src"))
	if src == "" {
		return "", errors.New("missing src")
	}
	caption := d.Params["caption"]
	if caption == "" {
		caption = strings.TrimSpace(d.Inner)
	}

	var b strings.Builder
	b.WriteString(`<figure><img src="`)
	b.WriteString(html.EscapeString(src))
	b.WriteString(`" alt="`)
	b.WriteString(html.EscapeString(d.Params["alt"]))
	b.WriteString(`">`)
	if caption != "" {
		b.WriteString("<figcaption>")
		b.WriteString(html.EscapeString(caption))
		b.WriteString("</figcaption>")
	}
	b.WriteString("</figure>")
	return b.String(), nil
}
