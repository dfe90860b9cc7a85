package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mafadubu/google-docs-resizer/internal/config"
	"github.com/mafadubu/google-docs-resizer/internal/docs"
	"github.com/mafadubu/google-docs-resizer/internal/doctree"
	"github.com/mafadubu/google-docs-resizer/internal/outline"
	"github.com/mafadubu/google-docs-resizer/internal/parser"
	"github.com/mafadubu/google-docs-resizer/internal/pipeline"
	"github.com/mafadubu/google-docs-resizer/internal/resize"
	"github.com/spf13/cobra"
)

func runOutline(cmd *cobra.Command, args []string) error {
	doc, err := loadSnapshot(args[0])
	if err != nil {
		return err
	}
	s := outline.Build(doc)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), s)
	}
	printStructure(cmd.OutOrStdout(), s)
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)
	doc, err := loadSnapshot(args[0])
	if err != nil {
		return err
	}
	widthCm, sel, err := selectionFromFlags(cmd)
	if err != nil {
		return err
	}
	strategyName, _ := cmd.Flags().GetString("strategy")
	strategy, err := resize.ParseStrategy(strategyName)
	if err != nil {
		return err
	}
	policy, err := policyFromFlags(cmd)
	if err != nil {
		return err
	}

	planner := resize.NewPlanner(strategy, nil, log)
	plan, err := planner.Plan(cmd.Context(), outline.Inventory(doc), resize.Request{TargetWidthCm: widthCm, Selection: sel})
	if err != nil {
		return err
	}
	chunks := pipeline.BuildChunks(plan.Actions, policy.ChunkSize)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"plan":   plan,
			"chunks": chunkSummaries(chunks),
		})
	}
	printPlan(cmd.OutOrStdout(), plan, chunks)
	return nil
}

func runResize(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)
	token := os.Getenv("GOOGLE_ACCESS_TOKEN")
	if token == "" {
		return errors.New("GOOGLE_ACCESS_TOKEN is not set")
	}
	widthCm, sel, err := selectionFromFlags(cmd)
	if err != nil {
		return err
	}
	policy, err := policyFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg := config.Load()
	strategy, err := resize.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client := docs.NewClient(ctx, cfg.DocsAPIURL, token, cfg.DocsRateLimit)
	defer client.Close()

	resizer := pipeline.NewResizer(
		resize.NewPlanner(strategy, nil, log),
		pipeline.NewExecutor(policy, log, nil, nil),
		nil, nil, log,
	)

	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")
	res, err := resizer.Run(ctx, client, pipeline.ResizeRequest{DocID: args[0], TargetWidthCm: widthCm, Selection: sel}, pipeline.Hooks{
		Plan: func(p resize.Plan, chunks int) {
			if !asJSON {
				fmt.Fprintf(out, "planned %d image(s) in %d batch(es)\n", p.Total(), chunks)
			}
		},
		Chunk: func(r pipeline.ChunkReport) {
			if asJSON {
				return
			}
			if r.OK {
				fmt.Fprintf(out, "  batch %d: %d image(s) ok\n", r.Index+1, r.Images)
			} else {
				fmt.Fprintf(out, "  batch %d: %d image(s) failed after %d attempt(s): %s\n", r.Index+1, r.Images, r.Attempts, r.Error)
			}
		},
	})
	if err != nil {
		return err
	}

	var mismatched []string
	verify, _ := cmd.Flags().GetBool("verify")
	if verify && res.Success > 0 {
		mismatched, err = resizer.Verify(ctx, client, args[0], res.IDMap, widthCm)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
	}

	if asJSON {
		return writeJSON(out, map[string]any{"result": res, "mismatched": mismatched})
	}
	fmt.Fprintf(out, "success %d, failed %d, total %d\n", res.Success, res.Failed, res.Total)
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "  skipped %s: %s\n", s.ImageID, s.Reason)
	}
	if res.Cancelled {
		fmt.Fprintln(out, "cancelled before all batches were submitted")
	}
	if verify {
		if len(mismatched) == 0 {
			fmt.Fprintln(out, "verify: all resized images match the target width")
		} else {
			fmt.Fprintf(out, "verify: %d image(s) off target: %s\n", len(mismatched), strings.Join(mismatched, ", "))
		}
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d image(s) were not resized", res.Failed, res.Total)
	}
	return nil
}

func loadSnapshot(path string) (*doctree.Document, error) {
	p, err := parser.ForFile(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Parse(f, path)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
}

// selectionFromFlags reads --width-cm, --ids and --scope. Ids win over
// scopes; neither selects the whole document.
func selectionFromFlags(cmd *cobra.Command) (float64, resize.Selection, error) {
	widthCm, _ := cmd.Flags().GetFloat64("width-cm")
	if widthCm <= 0 {
		return 0, resize.Selection{}, resize.ErrInvalidWidth
	}
	if cmd.Flags().Changed("ids") {
		ids, _ := cmd.Flags().GetStringSlice("ids")
		return widthCm, resize.ByIDs(ids...), nil
	}
	if cmd.Flags().Changed("scope") {
		raw, _ := cmd.Flags().GetStringSlice("scope")
		ranges, err := parseScopes(raw)
		if err != nil {
			return 0, resize.Selection{}, err
		}
		return widthCm, resize.ByScopes(ranges...), nil
	}
	return widthCm, resize.All(), nil
}

func parseScopes(raw []string) ([]resize.Range, error) {
	ranges := make([]resize.Range, 0, len(raw))
	for _, s := range raw {
		a, b, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("scope %q: expected start:end", s)
		}
		start, err := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("scope %q: %w", s, err)
		}
		end, err := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("scope %q: %w", s, err)
		}
		if end <= start {
			return nil, fmt.Errorf("scope %q: end must be after start", s)
		}
		ranges = append(ranges, resize.Range{Start: start, End: end})
	}
	return ranges, nil
}

// policyFromFlags resolves the chunking preset from the environment and
// applies command-line overrides.
func policyFromFlags(cmd *cobra.Command) (pipeline.RetryPolicy, error) {
	cfg := config.Load()
	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		cfg.ChunkPreset = name
	}
	if n, _ := cmd.Flags().GetInt("chunk-size"); n > 0 {
		cfg.ChunkSize = n
	}
	preset, err := cfg.Batch()
	if err != nil {
		return pipeline.RetryPolicy{}, err
	}
	policy := pipeline.PolicyFromPreset(preset)
	if cmd.Flags().Lookup("max-retries") != nil {
		if n, _ := cmd.Flags().GetInt("max-retries"); n >= 0 {
			policy.MaxRetries = n
		}
	}
	return policy, nil
}

type chunkSummary struct {
	Index    int      `json:"index"`
	Images   []string `json:"images"`
	Requests int      `json:"requests"`
}

func chunkSummaries(chunks []pipeline.Chunk) []chunkSummary {
	out := make([]chunkSummary, len(chunks))
	for i, c := range chunks {
		ids := make([]string, len(c.Actions))
		for j, a := range c.Actions {
			ids[j] = a.ImageID
		}
		out[i] = chunkSummary{Index: c.Index, Images: ids, Requests: len(c.Requests)}
	}
	return out
}

func printStructure(w io.Writer, s outline.Structure) {
	fmt.Fprintf(w, "%s (%d images)\n", s.Title, len(s.Images))
	for _, ch := range s.Chapters {
		indent := strings.Repeat("  ", ch.Level)
		fmt.Fprintf(w, "%s%s [%d-%d) %d image(s)\n", indent, ch.Title, ch.StartOffset, ch.ScopeEndOffset, ch.ImageCount)
	}
	if len(s.Unscoped) > 0 {
		fmt.Fprintf(w, "  (before first heading) %d image(s)\n", len(s.Unscoped))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tOFFSET\tWIDTH\tHEIGHT")
	for _, img := range s.Images {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%.1f\n", img.ID, img.Kind, img.AnchorOffset, img.Width, img.Height)
	}
	tw.Flush()
}

func printPlan(w io.Writer, plan resize.Plan, chunks []pipeline.Chunk) {
	fmt.Fprintf(w, "target width %.3fpt, %d action(s), %d skipped\n", plan.TargetWidthPt, len(plan.Actions), len(plan.Skipped))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BATCH\tID\tKIND\tOFFSET\tWIDTH\tHEIGHT")
	for _, c := range chunks {
		for _, a := range c.Actions {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.3f\t%.3f\n", c.Index+1, a.ImageID, a.Kind, a.Anchor, a.Width, a.Height)
		}
	}
	tw.Flush()
	for _, s := range plan.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.ImageID, s.Reason)
	}
	for _, id := range plan.Fallbacks {
		fmt.Fprintf(w, "no width recorded for %s, inserted at target width\n", id)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
