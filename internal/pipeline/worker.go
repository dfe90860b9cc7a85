package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mafadubu/google-docs-resizer/internal/resize"
)

// Worker processes a single resize job.
type Worker struct {
	resizer *Resizer
	log     *slog.Logger
}

func NewWorker(resizer *Resizer, log *slog.Logger) *Worker {
	return &Worker{resizer: resizer, log: log}
}

// Process runs one job to a terminal status.
func (w *Worker) Process(parent context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	ctx, cancel, ok := job.bindContext(parent)
	if !ok {
		log.Info("job cancelled before start")
		return
	}
	defer cancel()

	res, err := w.resizer.Run(ctx, job.api, job.request, Hooks{
		Phase: func(s JobStatus) { job.SetStatus(s, string(s)) },
		Plan: func(p resize.Plan, chunks int) {
			job.SetPlan(p.Total(), chunks)
			for _, s := range p.Skipped {
				job.AddError(fmt.Sprintf("skipped %s: %s", s.ImageID, s.Reason))
			}
		},
		Chunk: func(r ChunkReport) {
			job.RecordChunk(r)
			if !r.OK {
				job.AddError(fmt.Sprintf("chunk %d: %s", r.Index, r.Error))
			}
		},
	})
	if err != nil {
		if job.CancelRequested() {
			log.Info("job cancelled", "error", err)
			job.SetStatus(StatusCancelled, "cancelled")
			return
		}
		log.Error("resize failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, fmt.Sprintf("%s failed", job.CurrentStatus()))
		return
	}

	job.Finish(res)
	log.Info("job finished", "status", job.CurrentStatus(), "success", res.Success, "failed", res.Failed)
}
