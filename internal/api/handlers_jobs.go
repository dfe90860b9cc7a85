package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mafadubu/google-docs-resizer/internal/pipeline"
	"github.com/mafadubu/google-docs-resizer/internal/relay"
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var body resizeBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := body.validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The job outlives the request.
	ctx := context.WithoutCancel(r.Context())
	token := relay.TokenFrom(ctx)
	job := pipeline.NewJob(body.request(token), s.deps.Docs(ctx, token))
	if err := s.deps.Orchestrator.Submit(job); err != nil {
		if errors.Is(err, pipeline.ErrDocumentBusy) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"doc_id":   job.DocID,
		"status":   job.CurrentStatus(),
		"poll_url": fmt.Sprintf("/api/doc/resize/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.ownedJob(r)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job := s.ownedJob(r)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if _, cancelled := s.deps.Orchestrator.CancelJob(job.ID); !cancelled {
		jsonError(w, "job already finished", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": "cancelling",
	})
}

// ownedJob returns the addressed job if the caller submitted it. Jobs of
// other callers are reported as missing.
func (s *Server) ownedJob(r *http.Request) *pipeline.Job {
	job := s.deps.Orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil || !job.OwnedBy(relay.TokenFrom(r.Context())) {
		return nil
	}
	return job
}
