package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mafadubu/google-docs-resizer/internal/docs"
	"github.com/mafadubu/google-docs-resizer/internal/doctree"
	"github.com/mafadubu/google-docs-resizer/internal/metrics"
	"github.com/mafadubu/google-docs-resizer/internal/outline"
	"github.com/mafadubu/google-docs-resizer/internal/relay"
	"github.com/mafadubu/google-docs-resizer/internal/resize"
)

// DocumentSource fetches document snapshots.
type DocumentSource interface {
	GetDocument(ctx context.Context, docID string) (*doctree.Document, error)
}

// DocsAPI is the remote surface a live resize needs.
type DocsAPI interface {
	DocumentSource
	BatchUpdater
}

// UsageCounter receives the number of images resized by a successful run.
type UsageCounter interface {
	IncrementResizes(ctx context.Context, n int) error
}

// Hooks lets callers observe a run. Every field is optional.
type Hooks struct {
	Phase func(status JobStatus)
	Plan  func(plan resize.Plan, chunks int)
	Chunk func(report ChunkReport)
}

// ResizeRequest is one live resize against a document.
type ResizeRequest struct {
	DocID         string
	TargetWidthCm float64
	Selection     resize.Selection

	// AccessToken, when set, lets the planner relay images the caller can
	// read but the Docs backend cannot fetch directly.
	AccessToken string
}

// Resizer composes fetch, plan and execute for one document.
type Resizer struct {
	planner  *resize.Planner
	executor *Executor
	usage    UsageCounter
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewResizer wires the planner and executor. usage and m may be nil.
func NewResizer(planner *resize.Planner, executor *Executor, usage UsageCounter, m *metrics.Metrics, log *slog.Logger) *Resizer {
	if log == nil {
		log = slog.Default()
	}
	return &Resizer{planner: planner, executor: executor, usage: usage, metrics: m, log: log}
}

// Structure fetches a document and builds its outline view.
func (r *Resizer) Structure(ctx context.Context, src DocumentSource, docID string) (outline.Structure, error) {
	doc, err := src.GetDocument(ctx, docID)
	if err != nil {
		return outline.Structure{}, err
	}
	return outline.Build(doc), nil
}

// Plan computes a dry-run plan for an already loaded document.
func (r *Resizer) Plan(ctx context.Context, doc *doctree.Document, targetWidthCm float64, sel resize.Selection) (resize.Plan, error) {
	return r.planner.Plan(ctx, outline.Inventory(doc), resize.Request{TargetWidthCm: targetWidthCm, Selection: sel})
}

// Run fetches the document, plans, and executes. Only a failed fetch or an
// invalid request returns an error; chunk failures are reported in the
// Result tally.
func (r *Resizer) Run(ctx context.Context, api DocsAPI, req ResizeRequest, hooks Hooks) (Result, error) {
	log := r.log.With("doc_id", req.DocID)
	if req.AccessToken != "" {
		ctx = relay.WithToken(ctx, req.AccessToken)
	}

	hooks.phase(StatusFetching)
	doc, err := api.GetDocument(ctx, req.DocID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch snapshot: %w", err)
	}

	hooks.phase(StatusPlanning)
	plan, err := r.Plan(ctx, doc, req.TargetWidthCm, req.Selection)
	if err != nil {
		return Result{}, err
	}
	chunks := (len(plan.Actions) + r.executor.policy.ChunkSize - 1) / r.executor.policy.ChunkSize
	if hooks.Plan != nil {
		hooks.Plan(plan, chunks)
	}
	log.Info("resize planned",
		"images", plan.Total(),
		"actions", len(plan.Actions),
		"skipped", len(plan.Skipped),
		"fallbacks", len(plan.Fallbacks),
		"chunks", chunks,
	)

	hooks.phase(StatusResizing)
	res := r.executor.Run(ctx, api, req.DocID, plan.Actions, hooks.Chunk)

	// Skipped images were selected but never submitted.
	res.Skipped = plan.Skipped
	res.Total += len(plan.Skipped)
	res.Failed += len(plan.Skipped)
	r.metrics.RecordSkipped(len(plan.Skipped))

	if r.usage != nil && res.Success > 0 {
		if err := r.usage.IncrementResizes(context.WithoutCancel(ctx), res.Success); err != nil {
			log.Warn("usage counter update failed", "error", err)
		}
	}
	return res, nil
}

// Verify re-reads the document and reports images from idMap whose width
// differs from targetWidthCm by more than half a point. Images that cannot
// be found are reported too.
func (r *Resizer) Verify(ctx context.Context, src DocumentSource, docID string, idMap map[string]string, targetWidthCm float64) ([]string, error) {
	doc, err := src.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	target := resize.CmToPoints(targetWidthCm)
	var mismatched []string
	for orig, current := range idMap {
		img, ok := outline.Locate(doc, current)
		if !ok || img.Width < target-0.5 || img.Width > target+0.5 {
			mismatched = append(mismatched, orig)
		}
	}
	slices.Sort(mismatched)
	return mismatched, nil
}

func (h Hooks) phase(s JobStatus) {
	if h.Phase != nil {
		h.Phase(s)
	}
}

var _ DocsAPI = (*docs.Client)(nil)
