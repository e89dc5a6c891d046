package site

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/starford/quill/internal/apperr"
)

var errAlreadyInitialized = errors.New("site: holder already initialized")

// Holder publishes the current Snapshot. Readers call Current and keep the
// snapshot they got for the whole request; a concurrent Replace never
// changes what they see.
type Holder struct {
	cur    atomic.Pointer[Snapshot]
	closed atomic.Bool
	mu     sync.Mutex // serialises Init, Replace and Close
}

// NewHolder returns an uninitialised holder.
func NewHolder() *Holder { return &Holder{} }

// Init publishes the first snapshot. It fails once a snapshot is in place.
func (h *Holder) Init(s *Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() {
		return apperr.ErrClosed
	}
	if h.cur.Load() != nil {
		return errAlreadyInitialized
	}
	h.cur.Store(s)
	return nil
}

// Replace swaps in s and returns the snapshot it replaced (nil before Init).
func (h *Holder) Replace(s *Snapshot) (*Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() {
		return nil, apperr.ErrClosed
	}
	return h.cur.Swap(s), nil
}

// Current returns the published snapshot.
func (h *Holder) Current() (*Snapshot, error) {
	if h.closed.Load() {
		return nil, apperr.ErrClosed
	}
	s := h.cur.Load()
	if s == nil {
		return nil, apperr.ErrNotReady
	}
	return s, nil
}

// Ready reports whether a snapshot has been published and the holder is open.
func (h *Holder) Ready() bool {
	_, err := h.Current()
	return err == nil
}

// Close drops the snapshot. Later calls fail with apperr.ErrClosed.
func (h *Holder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed.Store(true)
	h.cur.Store(nil)
}
