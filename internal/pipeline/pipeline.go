// Package pipeline runs one full build: load, parse and render every unit
// concurrently, then index the surviving documents into a site snapshot.
package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/index"
	"github.com/starford/quill/internal/loader"
	"github.com/starford/quill/internal/logfields"
	"github.com/starford/quill/internal/metrics"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/parser"
	"github.com/starford/quill/internal/render"
	"github.com/starford/quill/internal/site"
)

// Stage names used for metrics and logs.
const (
	StageProcess = "process"
	StageIndex   = "index"
)

// Pipeline wires a loader and a renderer. A Pipeline may be Run repeatedly;
// runs share nothing.
type Pipeline struct {
	loader   *loader.Loader
	renderer *render.Renderer
	workers  int
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds the number of units parsed and rendered at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New returns a Pipeline. The default worker count is GOMAXPROCS.
func New(l *loader.Loader, r *render.Renderer, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:   l,
		renderer: r,
		workers:  runtime.GOMAXPROCS(0),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// outcome is what happened to one unit, keyed by its position in the scan.
type outcome struct {
	seq   int
	path  string
	doc   *models.Document
	rend  render.Rendition
	issue error
}

// Run builds a snapshot. Per-unit problems go into the snapshot's report.
// A root read failure or cancellation discards all partial work and is
// returned as the error.
func (p *Pipeline) Run(ctx context.Context) (*site.Snapshot, error) {
	runID := uuid.NewString()
	started := time.Now()
	logger := p.logger.With(logfields.RunID(runID))
	logger.Info("pipeline: run started", slog.Int("workers", p.workers))

	outcomes, err := p.process(ctx)
	p.recorder.ObserveStageDuration(StageProcess, time.Since(started))
	if err != nil {
		p.fail(logger, started, err)
		return nil, err
	}

	indexStart := time.Now()
	report := &models.Report{RunID: runID, StartedAt: started, Issues: []models.Issue{}}
	docs := make([]*models.Document, 0, len(outcomes))
	rends := make(map[string]render.Rendition, len(outcomes))
	firstPath := make(map[string]string, len(outcomes))

	for _, o := range outcomes {
		var readErr *apperr.ReadError
		if o.issue == nil || !errors.As(o.issue, &readErr) {
			report.Loaded++
		}
		if o.issue != nil {
			report.Issues = append(report.Issues, issueFor(o.path, "", o.issue))
			continue
		}
		if prev, dup := firstPath[o.doc.ID]; dup {
			dupErr := &apperr.MalformedDocumentError{
				Path: o.path,
				Err:  fmt.Errorf("%w %q, already defined by %s", apperr.ErrDuplicate, o.doc.ID, prev),
			}
			report.Issues = append(report.Issues, issueFor(o.path, o.doc.ID, dupErr))
			continue
		}
		firstPath[o.doc.ID] = o.path
		docs = append(docs, o.doc)
		rends[o.doc.ID] = o.rend
		for _, w := range o.rend.Warnings {
			report.Issues = append(report.Issues, issueFor(o.path, o.doc.ID, w))
		}
	}

	idx, err := index.Build(docs)
	if err != nil {
		err = fmt.Errorf("pipeline: %w", err)
		p.fail(logger, started, err)
		return nil, err
	}
	p.recorder.ObserveStageDuration(StageIndex, time.Since(indexStart))

	report.Indexed = idx.Len() + idx.Drafts()
	report.Drafts = idx.Drafts()
	report.FinishedAt = time.Now()

	snap := &site.Snapshot{
		RunID:      runID,
		BuiltAt:    report.FinishedAt,
		Index:      idx,
		Renditions: rends,
		Report:     report,
	}

	for _, is := range report.Issues {
		p.recorder.IncIssue(string(is.Kind))
		logger.Warn("pipeline: unit issue",
			logfields.Kind(string(is.Kind)), logfields.Path(is.Path), slog.String("message", is.Message))
	}
	result := metrics.OutcomeSuccess
	if len(report.Issues) > 0 {
		result = metrics.OutcomeWarning
	}
	elapsed := report.FinishedAt.Sub(started)
	p.recorder.IncBuildOutcome(result)
	p.recorder.ObserveBuildDuration(elapsed)
	p.recorder.SetDocuments(idx.Len(), idx.Drafts())
	logger.Info("pipeline: run finished",
		slog.Int("loaded", report.Loaded),
		slog.Int("indexed", report.Indexed),
		slog.Int("drafts", report.Drafts),
		slog.Int("issues", len(report.Issues)),
		logfields.Duration(elapsed))
	return snap, nil
}

// process scans units and fans parse+render out over a bounded errgroup.
// It returns once every worker has finished, ordered by scan position.
func (p *Pipeline) process(ctx context.Context) ([]outcome, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var (
		mu  sync.Mutex
		out []outcome
	)
	record := func(o outcome) {
		mu.Lock()
		out = append(out, o)
		mu.Unlock()
	}

	var scanErr error
	seq := 0
	for unit, err := range p.loader.Scan(gctx) {
		if err != nil {
			var re *apperr.ReadError
			if errors.As(err, &re) && !re.Root {
				record(outcome{seq: seq, path: re.Path, issue: re})
				seq++
				continue
			}
			scanErr = err
			break
		}

		n := seq
		seq++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := parser.Parse(unit)
			if err != nil {
				record(outcome{seq: n, path: unit.Path, issue: err})
				return nil
			}
			record(outcome{seq: n, path: unit.Path, doc: doc, rend: p.renderer.Render(doc)})
			return nil
		})
	}

	// Barrier: nothing is indexed until every worker is done.
	waitErr := g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}
	if waitErr != nil {
		return nil, waitErr
	}

	slices.SortFunc(out, func(a, b outcome) int { return cmp.Compare(a.seq, b.seq) })
	return out, nil
}

func (p *Pipeline) fail(logger *slog.Logger, started time.Time, err error) {
	result := metrics.OutcomeFailed
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		result = metrics.OutcomeCanceled
	}
	p.recorder.IncBuildOutcome(result)
	p.recorder.ObserveBuildDuration(time.Since(started))
	logger.Error("pipeline: run aborted", slog.String("outcome", string(result)), logfields.Error(err))
}

func issueFor(path, id string, err error) models.Issue {
	is := models.Issue{Path: path, ID: id, Message: err.Error(), Err: err}
	var (
		re *apperr.ReadError
		uw *apperr.UnresolvedDirectiveWarning
	)
	switch {
	case errors.As(err, &re):
		is.Kind = models.IssueReadError
	case errors.As(err, &uw):
		is.Kind = models.IssueUnresolvedDirective
	default:
		is.Kind = models.IssueMalformedDocument
	}
	return is
}
