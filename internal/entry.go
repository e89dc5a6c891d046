// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quill/internal/api"
	"github.com/starford/quill/internal/catalog"
	"github.com/starford/quill/internal/loader"
	"github.com/starford/quill/internal/logfields"
	"github.com/starford/quill/internal/mcpserver"
	"github.com/starford/quill/internal/metrics"
	"github.com/starford/quill/internal/pipeline"
	"github.com/starford/quill/internal/publish"
	"github.com/starford/quill/internal/reload"
	"github.com/starford/quill/internal/render"
	"github.com/starford/quill/internal/site"
	"github.com/starford/quill/internal/siteservice"
	"github.com/starford/quill/internal/sse"
	"github.com/starford/quill/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// components is the wiring shared by every command.
type components struct {
	cfg      *Config
	logger   *slog.Logger
	store    *storage.FS
	registry *prometheus.Registry
	pipeline *pipeline.Pipeline
	holder   *site.Holder
	embeds   *render.Registry
}

func setup(opts []Option) (*application, *components, error) {
	app := &application{version: "dev", logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(app.logOut, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_root", cfg.Content.Root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("workers", cfg.Content.WorkerCount()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Content.Root, cfg.Content.FSOptions()...)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	ld := loader.New(store,
		loader.WithPolicy(cfg.Content.Retry.Policy()),
		loader.WithReadTimeout(cfg.Content.ReadTimeout),
		loader.WithRootName(cfg.Content.Root),
		loader.WithLogger(logger),
		loader.WithRetryHook(func(string, int, error) { recorder.IncReadRetry() }),
	)
	embeds := render.Builtins()
	p := pipeline.New(ld, render.New(embeds),
		pipeline.WithWorkers(cfg.Content.WorkerCount()),
		pipeline.WithRecorder(recorder),
		pipeline.WithLogger(logger),
	)

	return app, &components{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: reg,
		pipeline: p,
		holder:   site.NewHolder(),
		embeds:   embeds,
	}, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Run serves the HTTP API with live reload until ctx is cancelled or a
// shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	_, c, err := setup(opts)
	if err != nil {
		return err
	}
	cfg, logger := c.cfg, c.logger

	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	reloader := reload.New(c.pipeline, c.holder,
		reload.WithCatalog(db),
		reload.WithLogger(logger),
		reload.WithOnSwap(func(prev, next *site.Snapshot) {
			changed, removed := site.Diff(prev, next)
			broker.PublishReload(sse.Reload{
				RunID:     next.RunID,
				Documents: next.Index.Len(),
				Issues:    len(next.Report.Issues),
				Changed:   changed,
				Removed:   removed,
			})
		}),
	)

	// The server starts even if the first build fails; readiness stays
	// false until a rebuild succeeds.
	if _, err := reloader.Rebuild(ctx); err != nil {
		logger.Warn("initial build failed", logfields.Error(err))
	}

	svc := siteservice.NewService(c.holder, db)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health and metrics endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !c.holder.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, "building")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Handle("/metrics", metrics.HTTPHandler(c.registry))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Reload.Enabled {
		g.Go(func() error {
			if err := reloader.Watch(gCtx, c.store.Root(), c.store, cfg.Reload.Debounce); err != nil {
				logger.Error("watcher stopped", logfields.Error(err))
			}
			return nil
		})
	}
	if cfg.Reload.Interval > 0 {
		g.Go(func() error {
			return reloader.Schedule(gCtx, cfg.Reload.Interval)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		var err error
		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			err = errShutdown
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", logfields.Error(err))
		}
		c.holder.Close()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", logfields.Error(err))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the run group when a signal arrives so that the
// watcher and scheduler stop too.
var errShutdown = errors.New("shutdown requested")

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// Build runs the pipeline once and writes the static site to out. It fails
// only when the content root cannot be read; per-document issues are
// logged and summarised.
func Build(ctx context.Context, out string, opts ...Option) (*publish.Stats, error) {
	_, c, err := setup(opts)
	if err != nil {
		return nil, err
	}
	if out == "" {
		out = c.cfg.Content.Output
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	dest, err := storage.NewFS(out)
	if err != nil {
		return nil, fmt.Errorf("init output: %w", err)
	}

	snap, err := c.pipeline.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	st, err := publish.Export(snap, dest)
	if err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(out)
	c.logger.Info("Site written",
		logfields.RunID(snap.RunID),
		slog.String("output", abs),
		slog.Int("pages", st.Pages),
		slog.Int("listings", st.Listings),
		slog.Int("issues", len(snap.Report.Issues)))
	return &st, nil
}

// RunMCP builds the site once and serves the MCP tools on stdin/stdout.
// Live reload keeps the snapshot current while the session is open.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, c, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	db, err := catalog.Open(c.cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	reloader := reload.New(c.pipeline, c.holder, reload.WithCatalog(db), reload.WithLogger(c.logger))
	if _, err := reloader.Rebuild(ctx); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if c.cfg.Reload.Enabled {
		go func() {
			if err := reloader.Watch(ctx, c.store.Root(), c.store, c.cfg.Reload.Debounce); err != nil {
				c.logger.Error("watcher stopped", logfields.Error(err))
			}
		}()
	}

	srv := mcpserver.New(siteservice.NewService(c.holder, db), app.version,
		mcpserver.WithShortcodes(c.embeds.Kinds()))
	return srv.ServeStdio()
}
