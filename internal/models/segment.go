package models

// Directive is a shortcode embedded in a document body, e.g.
// {{< youtube id="dQw4w9WgXcQ" label="Talk" >}}.
type Directive struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params"`
	Inner  string            `json:"inner,omitempty"`
	Offset int               `json:"offset"`
	Raw    string            `json:"raw"`
}

// Param returns the named parameter, falling back to the first positional one.
func (d Directive) Param(name string) string {
	if v, ok := d.Params[name]; ok {
		return v
	}
	return d.Params["0"]
}

// SegmentKind classifies a rendered segment.
type SegmentKind string

const (
	SegmentMarkup      SegmentKind = "markup"
	SegmentDirective   SegmentKind = "directive"
	SegmentPlaceholder SegmentKind = "placeholder"
)

// Segment is one piece of a rendered body. Markup segments carry the body
// text unchanged; directive segments carry resolver output; placeholder
// segments carry the raw token of a directive that could not be resolved.
type Segment struct {
	Kind      SegmentKind `json:"kind"`
	Text      string      `json:"text"`
	Directive *Directive  `json:"directive,omitempty"`
}
