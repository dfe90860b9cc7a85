package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mafadubu/google-docs-resizer/internal/docs"
	"github.com/mafadubu/google-docs-resizer/internal/metrics"
	"github.com/mafadubu/google-docs-resizer/internal/resize"
)

// BatchUpdater submits one chunk of requests and returns positional replies.
type BatchUpdater interface {
	BatchUpdate(ctx context.Context, docID string, requests []docs.Request) ([]docs.Response, error)
}

// ChunkReport describes how one chunk ended.
type ChunkReport struct {
	Index    int    `json:"index"`
	Images   int    `json:"images"`
	Attempts int    `json:"attempts"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// Result tallies one execution. Success+Failed always equals Total, and a
// chunk once counted is never recounted.
type Result struct {
	Success   int               `json:"success"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
	IDMap     map[string]string `json:"idMap"`
	Chunks    []ChunkReport     `json:"chunks,omitempty"`
	Skipped   []resize.Skip     `json:"skipped,omitempty"`
	Cancelled bool              `json:"cancelled,omitempty"`
}

// Executor runs sorted actions against a document chunk by chunk.
type Executor struct {
	policy  RetryPolicy
	log     *slog.Logger
	metrics *metrics.Metrics
	stats   *BatchStats

	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor. m and stats may be nil.
func NewExecutor(policy RetryPolicy, log *slog.Logger, m *metrics.Metrics, stats *BatchStats) *Executor {
	if policy.ChunkSize <= 0 {
		policy = DefaultPolicy()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		policy:  policy,
		log:     log,
		metrics: m,
		stats:   stats,
		sleep:   sleepCtx,
	}
}

// Policy returns the executor's retry policy.
func (e *Executor) Policy() RetryPolicy { return e.policy }

// Run executes actions in order. Chunks are submitted strictly one after
// another. Cancellation is honoured only between chunks and before a retry;
// a submitted call always runs to completion and its outcome is counted.
// onChunk, if set, is called after every chunk.
func (e *Executor) Run(ctx context.Context, api BatchUpdater, docID string, actions []resize.Action, onChunk func(ChunkReport)) Result {
	res := Result{Total: len(actions), IDMap: make(map[string]string)}
	chunks := BuildChunks(actions, e.policy.ChunkSize)
	log := e.log.With("doc_id", docID)

	for i, c := range chunks {
		if ctx.Err() != nil {
			res.Cancelled = true
			for _, rest := range chunks[i:] {
				res.Failed += len(rest.Actions)
			}
			log.Info("resize cancelled", "remaining_chunks", len(chunks)-i, "failed", res.Failed)
			break
		}

		report, stopped := e.runChunk(ctx, api, docID, c, res.IDMap, log)
		res.Chunks = append(res.Chunks, report)
		if report.OK {
			res.Success += report.Images
			e.metrics.RecordChunk("success", report.Images)
		} else {
			res.Failed += report.Images
			e.metrics.RecordChunk("failed", report.Images)
		}
		if onChunk != nil {
			onChunk(report)
		}
		if stopped {
			res.Cancelled = true
			for _, rest := range chunks[i+1:] {
				res.Failed += len(rest.Actions)
			}
			log.Info("resize cancelled during retry", "chunk", c.Index, "failed", res.Failed)
			break
		}
	}

	log.Info("resize executed",
		"success", res.Success,
		"failed", res.Failed,
		"total", res.Total,
		"chunks", len(chunks),
	)
	return res
}

// runChunk submits one chunk, retrying transient failures. stopped reports
// that the context was cancelled while waiting to retry.
func (e *Executor) runChunk(ctx context.Context, api BatchUpdater, docID string, c Chunk, idMap map[string]string, log *slog.Logger) (report ChunkReport, stopped bool) {
	report = ChunkReport{Index: c.Index, Images: len(c.Actions)}
	callCtx := context.WithoutCancel(ctx)

	for attempt := 0; ; attempt++ {
		report.Attempts++
		start := time.Now()
		replies, err := api.BatchUpdate(callCtx, docID, c.Requests)
		elapsed := time.Since(start)
		e.stats.Record(elapsed, err != nil)
		e.metrics.RecordBatchCall(elapsed)

		if err == nil {
			mapped := Reconcile(c, replies, idMap)
			report.OK = true
			report.Error = ""
			log.Debug("chunk applied", "chunk", c.Index, "images", report.Images, "reconciled", mapped, "attempts", report.Attempts)
			return report, false
		}

		report.Error = err.Error()
		if !IsRetryable(err) {
			log.Error("chunk failed", "chunk", c.Index, "images", report.Images, "error", err)
			return report, false
		}
		if attempt >= e.policy.MaxRetries {
			log.Error("chunk failed after retries", "chunk", c.Index, "attempts", report.Attempts, "error", err)
			return report, false
		}

		wait := e.policy.Backoff(attempt)
		log.Warn("retryable batch error", "chunk", c.Index, "attempt", attempt, "backoff", wait, "error", err)
		if err := e.sleep(ctx, wait); err != nil {
			report.Error = fmt.Sprintf("cancelled before retry: %s", report.Error)
			return report, true
		}
		e.metrics.RecordRetry()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
