package parser

import (
	"fmt"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Date layouts accepted for the date field, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Header is the recognised front-matter schema. Keys the core does not know
// about land in Extra and are carried through untouched.
type Header struct {
	Title      string         `yaml:"title" json:"title"`
	Summary    string         `yaml:"summary,omitempty" json:"summary"`
	Categories Labels         `yaml:"categories,omitempty" json:"categories"`
	Tags       Labels         `yaml:"tags,omitempty" json:"tags"`
	Date       string         `yaml:"date" json:"date"`
	Draft      bool           `yaml:"draft,omitempty" json:"draft"`
	Extra      map[string]any `yaml:",inline" json:"-"`
}

// Validate checks the required fields.
func (h *Header) Validate() error {
	return validation.ValidateStruct(h,
		validation.Field(&h.Title, validation.Required),
		validation.Field(&h.Date, validation.Required, validation.By(func(v any) error {
			_, err := ParseDate(v.(string))
			return err
		})),
	)
}

// PublishDate returns the header date as a calendar date (UTC midnight).
func (h *Header) PublishDate() (time.Time, error) {
	return ParseDate(h.Date)
}

// ParseDate parses s with the accepted layouts and truncates it to the
// calendar date it names in its own offset.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q, use YYYY-MM-DD or RFC 3339", s)
}

// Labels is a set of category or tag labels. It decodes from a YAML list or
// a single scalar; entries are trimmed, empties dropped, duplicates removed,
// and the result sorted. Case is preserved.
type Labels []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *Labels) UnmarshalYAML(value *yaml.Node) error {
	var raw []string
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*l = nil
			return nil
		}
		raw = []string{value.Value}
	case yaml.SequenceNode:
		if err := value.Decode(&raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: labels must be a list of strings", value.Line)
	}
	*l = NormalizeLabels(raw)
	return nil
}

// NormalizeLabels trims, drops empty entries, deduplicates and sorts.
func NormalizeLabels(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
