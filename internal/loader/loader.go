// Package loader turns a content root into a lazy sequence of raw units.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/logfields"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/retry"
	"github.com/starford/quill/internal/storage"
)

// DefaultReadTimeout bounds a single read attempt.
const DefaultReadTimeout = 5 * time.Second

// Loader reads content units from a storage provider.
type Loader struct {
	store   storage.Provider
	root    string
	policy  retry.Policy
	timeout time.Duration
	logger  *slog.Logger
	onRetry func(path string, attempt int, err error)
}

// Option customises a Loader.
type Option func(*Loader)

// WithPolicy sets the retry policy for transient read failures.
func WithPolicy(p retry.Policy) Option {
	return func(l *Loader) { l.policy = p }
}

// WithReadTimeout bounds each read attempt.
func WithReadTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger sets the logger used for retry and skip messages.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithRetryHook registers a callback invoked before every retry sleep.
func WithRetryHook(fn func(path string, attempt int, err error)) Option {
	return func(l *Loader) { l.onRetry = fn }
}

// WithRootName sets the name used for the root in ReadError messages.
func WithRootName(name string) Option {
	return func(l *Loader) { l.root = name }
}

// New creates a Loader over store.
func New(store storage.Provider, opts ...Option) *Loader {
	l := &Loader{
		store:   store,
		root:    ".",
		policy:  retry.DefaultPolicy(),
		timeout: DefaultReadTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Scan returns a single-pass sequence of raw units. Each call lists the root
// again, so a sequence can be restarted by calling Scan anew.
//
// Yielded errors:
//   - *apperr.ReadError with Root set: the root could not be listed; the
//     sequence ends.
//   - *apperr.ReadError without Root: one unit was unreadable; the sequence
//     continues.
//   - ctx.Err(): the scan was cancelled between units; the sequence ends.
func (l *Loader) Scan(ctx context.Context) iter.Seq2[models.RawUnit, error] {
	return func(yield func(models.RawUnit, error) bool) {
		var metas []models.UnitMeta
		err := retry.Do(ctx, l.policy, transient, l.retryHook(l.root), func(context.Context) error {
			var listErr error
			metas, listErr = l.store.List("")
			return listErr
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield(models.RawUnit{}, ctxErr)
				return
			}
			yield(models.RawUnit{}, &apperr.ReadError{Path: l.root, Root: true, Err: err})
			return
		}

		for _, m := range metas {
			if err := ctx.Err(); err != nil {
				yield(models.RawUnit{}, err)
				return
			}
			if m.Err != nil {
				l.logger.Warn("loader: skipping unreadable entry", logfields.Path(m.Path), logfields.Error(m.Err))
				if !yield(models.RawUnit{Path: m.Path}, &apperr.ReadError{Path: m.Path, Err: m.Err}) {
					return
				}
				continue
			}

			data, err := l.read(ctx, m.Path)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					yield(models.RawUnit{}, ctxErr)
					return
				}
				l.logger.Warn("loader: skipping unreadable unit", logfields.Path(m.Path), logfields.Error(err))
				if !yield(models.RawUnit{Path: m.Path}, &apperr.ReadError{Path: m.Path, Err: err}) {
					return
				}
				continue
			}

			unit := models.RawUnit{
				Path:     m.Path,
				ID:       Identifier(m.Path),
				Data:     data,
				Checksum: storage.Checksum(data),
				ModTime:  m.ModTime,
			}
			if !yield(unit, nil) {
				return
			}
		}
	}
}

func (l *Loader) read(ctx context.Context, p string) ([]byte, error) {
	var data []byte
	err := retry.Do(ctx, l.policy, transient, l.retryHook(p), func(ctx context.Context) error {
		var readErr error
		data, readErr = l.readOnce(ctx, p)
		return readErr
	})
	return data, err
}

// readOnce performs a single read bounded by the configured timeout. The
// storage call itself is not interruptible, so on expiry its result is
// abandoned to the buffered channel.
func (l *Loader) readOnce(ctx context.Context, p string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := l.store.Read(p)
		ch <- result{data: data, err: err}
	}()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("loader: read %s: %w", p, ctx.Err())
	}
}

func (l *Loader) retryHook(p string) func(int, error) {
	return func(attempt int, err error) {
		l.logger.Debug("loader: retrying read", logfields.Path(p), slog.Int("attempt", attempt), logfields.Error(err))
		if l.onRetry != nil {
			l.onRetry(p, attempt, err)
		}
	}
}

// transient reports whether a storage error is worth retrying.
func transient(err error) bool {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission), errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// Identifier derives a document identifier from a slash-separated content
// path: the extension is dropped and an index or _index file collapses to
// its directory ("posts/nostr/index.md" → "posts/nostr").
func Identifier(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	id := strings.TrimSuffix(p, path.Ext(p))
	base := path.Base(id)
	if base == "index" || base == "_index" {
		dir := path.Dir(id)
		if dir == "." {
			return "index"
		}
		return dir
	}
	return id
}
