package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mafadubu/google-docs-resizer/internal/docs"
	"github.com/mafadubu/google-docs-resizer/internal/pipeline"
	"github.com/mafadubu/google-docs-resizer/internal/relay"
	"github.com/mafadubu/google-docs-resizer/internal/resize"
)

type structureBody struct {
	DocID string `json:"docId"`
}

// resizeBody is shared by the synchronous and job endpoints. An absent
// selectedImageIds and scopes means the whole document; an explicit empty
// list selects nothing. Image ids take precedence over scopes.
type resizeBody struct {
	DocID            string         `json:"docId"`
	TargetWidthCm    float64        `json:"targetWidthCm"`
	Scopes           []resize.Range `json:"scopes"`
	SelectedImageIDs []string       `json:"selectedImageIds"`
}

func (b resizeBody) selection() resize.Selection {
	switch {
	case b.SelectedImageIDs != nil:
		return resize.ByIDs(b.SelectedImageIDs...)
	case b.Scopes != nil:
		return resize.ByScopes(b.Scopes...)
	default:
		return resize.All()
	}
}

func (b resizeBody) request(token string) pipeline.ResizeRequest {
	return pipeline.ResizeRequest{
		DocID:         b.DocID,
		TargetWidthCm: b.TargetWidthCm,
		Selection:     b.selection(),
		AccessToken:   token,
	}
}

func (b resizeBody) validate() error {
	if strings.TrimSpace(b.DocID) == "" {
		return errors.New("docId is required")
	}
	if b.TargetWidthCm <= 0 {
		return resize.ErrInvalidWidth
	}
	return nil
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	var body structureBody
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.DocID) == "" {
		jsonError(w, "docId is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	structure, err := s.deps.Orchestrator.Resizer().Structure(ctx, s.docsFor(r), body.DocID)
	if err != nil {
		s.docsError(w, "fetch document", err)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

// handleResize runs a resize to completion within the request.
func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var body resizeBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := body.validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	token := relay.TokenFrom(r.Context())
	res, err := s.deps.Orchestrator.Resizer().Run(r.Context(), s.docsFor(r), body.request(token), pipeline.Hooks{})
	if err != nil {
		s.docsError(w, "resize", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// docsFor builds a Docs client for the caller's token.
func (s *Server) docsFor(r *http.Request) pipeline.DocsAPI {
	return s.deps.Docs(r.Context(), relay.TokenFrom(r.Context()))
}

func (s *Server) docsError(w http.ResponseWriter, op string, err error) {
	var apiErr *docs.APIError
	switch {
	case errors.Is(err, resize.ErrInvalidWidth):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case docs.IsNotFound(err):
		jsonError(w, "document not found", http.StatusNotFound)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		jsonError(w, "google access token rejected", http.StatusUnauthorized)
	case docs.IsForbidden(err):
		jsonError(w, "access to document denied", http.StatusForbidden)
	case errors.As(err, &apiErr), pipeline.IsRetryable(err):
		s.log.Warn("docs api error", "op", op, "error", err)
		jsonError(w, op+" failed: "+err.Error(), http.StatusBadGateway)
	default:
		s.log.Error("request failed", "op", op, "error", err)
		jsonError(w, op+" failed", http.StatusInternalServerError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			jsonError(w, "request body is required", http.StatusBadRequest)
		default:
			jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		}
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
