// Package parser splits raw content units into a typed front-matter header
// and a body, producing Documents.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

// Delimiter is the marker line before and after the header.
const Delimiter = "---"

var yamlFormat = frontmatter.NewFormat(Delimiter, Delimiter, yaml.Unmarshal)

// ErrMissingHeader is returned (wrapped) when a unit has no front-matter block.
var ErrMissingHeader = errors.New("front-matter header not found")

// Split decodes the header of data and returns it with the body remainder.
func Split(data []byte) (*Header, string, error) {
	var h Header
	body, err := frontmatter.MustParse(bytes.NewReader(data), &h, yamlFormat)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return nil, "", ErrMissingHeader
		}
		return nil, "", fmt.Errorf("decode header: %w", err)
	}
	h.Title = strings.TrimSpace(h.Title)
	h.Summary = strings.TrimSpace(h.Summary)
	if len(h.Extra) == 0 {
		h.Extra = nil
	}
	return &h, string(body), nil
}

// Parse turns a raw unit into a Document. Any failure is reported as a
// *apperr.MalformedDocumentError naming the unit's path.
func Parse(unit models.RawUnit) (*models.Document, error) {
	h, body, err := Split(unit.Data)
	if err != nil {
		return nil, &apperr.MalformedDocumentError{Path: unit.Path, Err: err}
	}
	if err := h.Validate(); err != nil {
		field, cause := firstFieldError(err)
		return nil, &apperr.MalformedDocumentError{Path: unit.Path, Field: field, Err: cause}
	}
	date, err := h.PublishDate()
	if err != nil {
		return nil, &apperr.MalformedDocumentError{Path: unit.Path, Field: "date", Err: err}
	}

	return &models.Document{
		ID:          unit.ID,
		Path:        unit.Path,
		Title:       h.Title,
		Summary:     h.Summary,
		Categories:  nonNil(h.Categories),
		Tags:        nonNil(h.Tags),
		PublishDate: date,
		Draft:       h.Draft,
		Body:        body,
		Extra:       h.Extra,
		Checksum:    unit.Checksum,
	}, nil
}

// HeaderOf rebuilds the header a document was parsed from.
func HeaderOf(doc *models.Document) Header {
	return Header{
		Title:      doc.Title,
		Summary:    doc.Summary,
		Categories: Labels(doc.Categories),
		Tags:       Labels(doc.Tags),
		Date:       doc.PublishDate.Format("2006-01-02"),
		Draft:      doc.Draft,
		Extra:      doc.Extra,
	}
}

// Serialize emits h between delimiter lines. Key order follows the struct
// with overflow keys sorted after it.
func Serialize(h Header) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&h); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("parser: serialize header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: serialize header: %w", err)
	}
	buf.WriteString(Delimiter + "\n")
	return buf.Bytes(), nil
}

// firstFieldError picks the alphabetically first failing field so the
// reported error is stable.
func firstFieldError(err error) (string, error) {
	var verrs validation.Errors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "", err
	}
	fields := make([]string, 0, len(verrs))
	for f := range verrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields[0], verrs[fields[0]]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
