// Package storage defines the content file-system abstraction.
package storage

import "github.com/starford/quill/internal/models"

// Provider is the read side used by the loader.
type Provider interface {
	// List returns an entry for every selected content file under dir (relative to root).
	List(dir string) ([]models.UnitMeta, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
}

// Writer is the write side used by the static export.
type Writer interface {
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}

var (
	_ Provider = (*FS)(nil)
	_ Writer   = (*FS)(nil)
)
