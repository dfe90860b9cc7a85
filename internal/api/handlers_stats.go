package api

import (
	"net/http"
)

func (s *Server) handleUsageStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Usage == nil {
		jsonError(w, "usage stats unavailable", http.StatusServiceUnavailable)
		return
	}
	stats, err := s.deps.Usage.Stats(r.Context())
	if err != nil {
		s.log.Error("usage stats failed", "error", err)
		jsonError(w, "usage stats unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleBatchStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.BatchStats == nil {
		jsonError(w, "batch stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batch_update": s.deps.BatchStats.Snapshot(),
		"queue_depth":  s.deps.Orchestrator.QueueDepth(),
	})
}
