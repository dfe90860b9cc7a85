package relay

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

const maxImageBytes = 50 << 20

// Handler serves GET /api/image-proxy?ticket=<id>: it fetches the ticket's
// source image with the stored token and streams it back.
type Handler struct {
	store      TicketStore
	httpClient *http.Client
	log        *slog.Logger
}

func NewHandler(s TicketStore, log *slog.Logger) *Handler {
	return &Handler{
		store:      s,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("ticket")
	if id == "" {
		http.Error(w, "missing ticket", http.StatusBadRequest)
		return
	}
	t, ok, err := h.store.GetTicket(r.Context(), id)
	if err != nil {
		h.log.Error("ticket lookup failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "ticket not found or expired", http.StatusNotFound)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, t.URL, nil)
	if err != nil {
		http.Error(w, "bad source url", http.StatusBadGateway)
		return
	}
	req.Header.Set("Authorization", "Bearer "+t.Token)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.log.Error("image fetch failed", "ticket", id, "error", err)
		http.Error(w, "failed to fetch image", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.log.Warn("image fetch rejected", "ticket", id, "status", resp.StatusCode)
		http.Error(w, "failed to fetch image: "+resp.Status, resp.StatusCode)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=60")
	if _, err := io.Copy(w, io.LimitReader(resp.Body, maxImageBytes)); err != nil {
		h.log.Warn("image stream interrupted", "ticket", id, "error", err)
	}
}
