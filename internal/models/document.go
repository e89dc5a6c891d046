// Package models defines the domain types for Quill.
package models

import "time"

// Document is one parsed content unit. Documents are immutable once the
// parser has produced them; every consumer treats them as read-only.
type Document struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	Categories  []string       `json:"categories"`
	Tags        []string       `json:"tags"`
	PublishDate time.Time      `json:"publish_date"`
	Draft       bool           `json:"draft"`
	Body        string         `json:"-"`
	Extra       map[string]any `json:"extra,omitempty"`
	Checksum    string         `json:"checksum"`
}

// HasCategory reports whether label is one of the document's categories.
func (d *Document) HasCategory(label string) bool {
	return containsLabel(d.Categories, label)
}

// HasTag reports whether label is one of the document's tags.
func (d *Document) HasTag(label string) bool {
	return containsLabel(d.Tags, label)
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// RawUnit is a content file as read from storage, before parsing.
type RawUnit struct {
	Path     string
	ID       string
	Data     []byte
	Checksum string
	ModTime  time.Time
}

// UnitMeta is a lightweight listing entry returned by storage.
// Err is set when the entry (or the subtree it stands for) could not be read.
type UnitMeta struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Err     error     `json:"-"`
}
