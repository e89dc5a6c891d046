// Package reload keeps the published site current: it rebuilds off to the
// side and swaps the result into the holder, triggered by file-system
// changes, a periodic schedule, or an explicit call.
package reload

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/quill/internal/catalog"
	"github.com/starford/quill/internal/logfields"
	"github.com/starford/quill/internal/site"
)

// Builder produces a complete snapshot. *pipeline.Pipeline implements it.
type Builder interface {
	Run(ctx context.Context) (*site.Snapshot, error)
}

// SwapFunc is called after a new snapshot is published.
type SwapFunc func(prev, next *site.Snapshot)

// Reloader serialises rebuilds against one holder.
type Reloader struct {
	builder Builder
	holder  *site.Holder
	catalog *catalog.DB
	onSwap  SwapFunc
	logger  *slog.Logger

	mu sync.Mutex
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithCatalog mirrors every published snapshot into db.
func WithCatalog(db *catalog.DB) Option {
	return func(r *Reloader) { r.catalog = db }
}

// WithOnSwap registers fn to run after each swap.
func WithOnSwap(fn SwapFunc) Option {
	return func(r *Reloader) { r.onSwap = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reloader) { r.logger = logger }
}

// New returns a Reloader publishing into holder.
func New(b Builder, holder *site.Holder, opts ...Option) *Reloader {
	r := &Reloader{builder: b, holder: holder, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Rebuild runs one build and publishes it. Concurrent calls queue behind
// each other. On failure the current snapshot stays in place and the error
// is returned.
func (r *Reloader) Rebuild(ctx context.Context) (*site.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.builder.Run(ctx)
	if err != nil {
		r.logger.Warn("reload: rebuild failed, keeping current snapshot", logfields.Error(err))
		return nil, err
	}

	var prev *site.Snapshot
	if r.holder.Ready() {
		if prev, err = r.holder.Replace(snap); err != nil {
			return nil, err
		}
	} else if err := r.holder.Init(snap); err != nil {
		return nil, err
	}

	if r.catalog != nil {
		st, err := catalog.Sync(r.catalog, snap.Index.Chronological(), r.logger)
		if err != nil {
			r.logger.Warn("reload: catalog sync failed", logfields.RunID(snap.RunID), logfields.Error(err))
		} else {
			r.logger.Debug("reload: catalog synced", logfields.RunID(snap.RunID),
				slog.Int("upserted", st.Upserted), slog.Int("removed", st.Removed))
		}
	}

	r.logger.Info("reload: snapshot published", logfields.RunID(snap.RunID),
		slog.Int("documents", snap.Index.Len()), slog.Int("issues", len(snap.Report.Issues)))
	if r.onSwap != nil {
		r.onSwap(prev, snap)
	}
	return snap, nil
}
