package resize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mafadubu/google-docs-resizer/internal/outline"
)

// Strategy selects how an image's size is changed remotely.
type Strategy string

const (
	// StrategyDeleteInsert replaces each image; always supported.
	StrategyDeleteInsert Strategy = "delete_insert"
	// StrategyPropertyUpdate patches geometry in place. Only usable against
	// an API version that accepts direct size updates.
	StrategyPropertyUpdate Strategy = "property"
)

// ParseStrategy maps a config value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyDeleteInsert:
		return StrategyDeleteInsert, nil
	case StrategyPropertyUpdate:
		return StrategyPropertyUpdate, nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// URIRewriter re-hosts an image source so the remote service can fetch it
// when the image is reinserted.
type URIRewriter interface {
	Rewrite(ctx context.Context, img outline.ImageRef) (string, error)
}

// Request is a resize request against one snapshot.
type Request struct {
	TargetWidthCm float64
	Selection     Selection
}

// Plan is the ordered set of actions for one request.
type Plan struct {
	TargetWidthPt float64  `json:"targetWidthPt"`
	Actions       []Action `json:"actions"`
	Skipped       []Skip   `json:"skipped,omitempty"`
	// Fallbacks lists images planned 1:1 because their width was absent.
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// Total is the number of selected images, planned or skipped.
func (p Plan) Total() int {
	return len(p.Actions) + len(p.Skipped)
}

// Planner turns selected images into sorted mutation actions.
type Planner struct {
	strategy Strategy
	rewriter URIRewriter
	log      *slog.Logger
}

// NewPlanner creates a planner. rewriter may be nil, in which case source
// URIs are reinserted unchanged.
func NewPlanner(strategy Strategy, rewriter URIRewriter, log *slog.Logger) *Planner {
	if strategy == "" {
		strategy = StrategyDeleteInsert
	}
	if log == nil {
		log = slog.Default()
	}
	return &Planner{strategy: strategy, rewriter: rewriter, log: log}
}

// Strategy returns the planner's strategy.
func (p *Planner) Strategy() Strategy { return p.strategy }

// Plan computes one action per selected image, sorted for execution.
// Images that cannot be planned are reported in Plan.Skipped; only an
// invalid target width is an error.
func (p *Planner) Plan(ctx context.Context, images []outline.ImageRef, req Request) (Plan, error) {
	if req.TargetWidthCm <= 0 {
		return Plan{}, ErrInvalidWidth
	}
	target := CmToPoints(req.TargetWidthCm)
	plan := Plan{TargetWidthPt: target}

	for _, img := range req.Selection.Resolve(images) {
		if img.Width <= 0 {
			p.log.Warn("image has no width, keeping 1:1", "image_id", img.ID, "error", ErrMissingGeometry)
			plan.Fallbacks = append(plan.Fallbacks, img.ID)
		}
		width, height, _ := Scale(img.Width, img.Height, target)

		action := Action{
			ImageID: img.ID,
			Anchor:  img.AnchorOffset,
			Width:   width,
			Height:  height,
		}
		// Positioned objects have no inline object to resize in place, so
		// they are always normalized to inline.
		switch {
		case img.Kind == outline.KindFloating:
			action.Kind = DeletePositionedInsert
		case p.strategy == StrategyPropertyUpdate:
			action.Kind = PropertyUpdate
		default:
			action.Kind = DeleteInsert
		}

		if action.Destructive() {
			uri, err := p.sourceURI(ctx, img)
			if err != nil {
				p.log.Warn("skipping image", "image_id", img.ID, "error", err)
				plan.Skipped = append(plan.Skipped, Skip{ImageID: img.ID, Reason: err.Error()})
				continue
			}
			action.URI = uri
		}
		plan.Actions = append(plan.Actions, action)
	}

	Sort(plan.Actions)
	p.log.Debug("planned resize",
		"target_width_pt", round3(target),
		"actions", len(plan.Actions),
		"skipped", len(plan.Skipped),
		"strategy", string(p.strategy),
	)
	return plan, nil
}

func (p *Planner) sourceURI(ctx context.Context, img outline.ImageRef) (string, error) {
	if img.SourceURI == "" {
		return "", ErrNoSource
	}
	if p.rewriter == nil {
		return img.SourceURI, nil
	}
	uri, err := p.rewriter.Rewrite(ctx, img)
	if err != nil {
		return "", fmt.Errorf("rewrite uri: %w", err)
	}
	if uri == "" {
		return "", ErrNoSource
	}
	return uri, nil
}
