// Package apperr holds the sentinel and typed errors shared across Quill.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNotReady  = errors.New("site index not ready")
	ErrClosed    = errors.New("site index closed")
	ErrDuplicate = errors.New("duplicate identifier")
)

// ReadError reports a storage failure. Root is true when the content root
// itself could not be listed; that aborts the whole load. Otherwise a single
// unit was unreadable and the batch continues.
type ReadError struct {
	Path string
	Root bool
	Err  error
}

func (e *ReadError) Error() string {
	if e.Root {
		return fmt.Sprintf("read content root %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// MalformedDocumentError reports a unit whose front-matter is missing,
// unparsable, or lacks a required field.
type MalformedDocumentError struct {
	Path  string
	Field string
	Err   error
}

func (e *MalformedDocumentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed document %s: field %q: %v", e.Path, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed document %s: %v", e.Path, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// UnresolvedDirectiveWarning is a non-fatal rendering problem: a directive
// had no resolver registered for its kind, or its resolver failed.
type UnresolvedDirectiveWarning struct {
	DocumentID string
	Kind       string
	Offset     int
	Err        error
}

func (w *UnresolvedDirectiveWarning) Error() string {
	if w.Err != nil {
		return fmt.Sprintf("unresolved directive %q at offset %d in %s: %v", w.Kind, w.Offset, w.DocumentID, w.Err)
	}
	return fmt.Sprintf("unresolved directive %q at offset %d in %s: no resolver registered", w.Kind, w.Offset, w.DocumentID)
}

func (w *UnresolvedDirectiveWarning) Unwrap() error { return w.Err }
