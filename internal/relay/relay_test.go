package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mafadubu/google-docs-resizer/internal/outline"
	"github.com/mafadubu/google-docs-resizer/internal/store"
)

type memTickets struct {
	mu      sync.Mutex
	tickets map[string]store.Ticket
	putErr  error
}

func (m *memTickets) PutTicket(_ context.Context, t store.Ticket) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tickets == nil {
		m.tickets = map[string]store.Ticket{}
	}
	m.tickets[t.ID] = t
	return nil
}

func (m *memTickets) GetTicket(_ context.Context, id string) (store.Ticket, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if ok && !t.ExpiresAt.After(time.Now()) {
		return store.Ticket{}, false, nil
	}
	return t, ok, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRewrite_IssuesTicket(t *testing.T) {
	tickets := &memTickets{}
	r := NewRewriter(tickets, "https://resizer.example", 0)
	img := outline.ImageRef{ID: "kix.1", SourceURI: "https://lh3/abc"}

	got, err := r.Rewrite(WithToken(context.Background(), "tok"), img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("bad url %q: %v", got, err)
	}
	if u.Host != "resizer.example" || u.Path != "/api/image-proxy" {
		t.Errorf("unexpected proxy url %q", got)
	}
	tk, ok := tickets.tickets[u.Query().Get("ticket")]
	if !ok {
		t.Fatal("expected ticket to be stored")
	}
	if tk.URL != img.SourceURI || tk.Token != "tok" {
		t.Errorf("unexpected ticket %+v", tk)
	}
	if ttl := time.Until(tk.ExpiresAt); ttl <= 4*time.Minute || ttl > DefaultTTL {
		t.Errorf("expected a five minute ttl, got %v", ttl)
	}
}

func TestRewrite_NoTokenKeepsSource(t *testing.T) {
	r := NewRewriter(&memTickets{}, "https://resizer.example", time.Minute)
	got, err := r.Rewrite(context.Background(), outline.ImageRef{SourceURI: "https://lh3/abc"})
	if err != nil || got != "https://lh3/abc" {
		t.Errorf("expected unchanged source, got %q %v", got, err)
	}
}

func TestRewrite_StoreFailure(t *testing.T) {
	r := NewRewriter(&memTickets{putErr: errors.New("disk full")}, "https://x", time.Minute)
	if _, err := r.Rewrite(WithToken(context.Background(), "tok"), outline.ImageRef{ID: "a", SourceURI: "u"}); err == nil {
		t.Error("expected store failure to surface")
	}
}

func TestHandler_ProxiesWithToken(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegbytes"))
	}))
	defer origin.Close()

	tickets := &memTickets{}
	tickets.PutTicket(context.Background(), store.Ticket{ID: "t1", URL: origin.URL, Token: "tok", ExpiresAt: time.Now().Add(time.Minute)})
	h := NewHandler(tickets, quiet())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/image-proxy?ticket=t1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "jpegbytes" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "image/jpeg" || rec.Header().Get("Cache-Control") != "public, max-age=60" {
		t.Errorf("unexpected headers %v", rec.Header())
	}
}

func TestHandler_Errors(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer origin.Close()

	tickets := &memTickets{}
	tickets.PutTicket(context.Background(), store.Ticket{ID: "gone", URL: origin.URL, Token: "tok", ExpiresAt: time.Now().Add(time.Minute)})
	tickets.PutTicket(context.Background(), store.Ticket{ID: "old", URL: origin.URL, Token: "tok", ExpiresAt: time.Now().Add(-time.Minute)})
	h := NewHandler(tickets, quiet())

	tests := []struct {
		query string
		want  int
	}{
		{"", http.StatusBadRequest},
		{"?ticket=unknown", http.StatusNotFound},
		{"?ticket=old", http.StatusNotFound},
		{"?ticket=gone", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/image-proxy"+tt.query, nil))
		if rec.Code != tt.want {
			t.Errorf("%q: expected %d, got %d (%s)", tt.query, tt.want, rec.Code, strings.TrimSpace(rec.Body.String()))
		}
	}
}

type countingPurger struct {
	mu sync.Mutex
	n  int
}

func (c *countingPurger) PurgeTickets(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return 1, nil
}

func TestRunPurger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &countingPurger{}
	done := make(chan struct{})
	go func() {
		RunPurger(ctx, p, time.Millisecond, quiet())
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.n == 0 {
		t.Error("expected at least one purge")
	}
}
