// Package relay re-hosts document images behind short-lived tickets so the
// Docs API can fetch them again when an image is reinserted.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/mafadubu/google-docs-resizer/internal/outline"
	"github.com/mafadubu/google-docs-resizer/internal/store"
)

// DefaultTTL is how long a ticket stays valid.
const DefaultTTL = 5 * time.Minute

// TicketStore persists tickets.
type TicketStore interface {
	PutTicket(ctx context.Context, t store.Ticket) error
	GetTicket(ctx context.Context, id string) (store.Ticket, bool, error)
}

type tokenKey struct{}

// WithToken attaches the caller's access token to ctx. The rewriter only
// relays images for contexts that carry a token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token attached by WithToken, or "".
func TokenFrom(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// Rewriter issues a ticket per image and returns the proxy URL for it.
type Rewriter struct {
	store   TicketStore
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewRewriter creates a rewriter whose proxy URLs point at baseURL.
func NewRewriter(s TicketStore, baseURL string, ttl time.Duration) *Rewriter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Rewriter{store: s, baseURL: baseURL, ttl: ttl, now: time.Now}
}

// Rewrite stores a ticket for img and returns
// <baseURL>/api/image-proxy?ticket=<id>. Without a token in ctx the source
// URI is returned unchanged.
func (r *Rewriter) Rewrite(ctx context.Context, img outline.ImageRef) (string, error) {
	tok := TokenFrom(ctx)
	if tok == "" {
		return img.SourceURI, nil
	}
	t := store.Ticket{
		ID:        uuid.NewString(),
		URL:       img.SourceURI,
		Token:     tok,
		ExpiresAt: r.now().Add(r.ttl),
	}
	if err := r.store.PutTicket(ctx, t); err != nil {
		return "", fmt.Errorf("store ticket for %s: %w", img.ID, err)
	}
	return r.baseURL + "/api/image-proxy?ticket=" + url.QueryEscape(t.ID), nil
}

// Purger removes expired tickets.
type Purger interface {
	PurgeTickets(ctx context.Context) (int64, error)
}

// RunPurger purges expired tickets every interval until ctx is done.
func RunPurger(ctx context.Context, p Purger, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeTickets(ctx)
			if err != nil {
				log.Warn("ticket purge failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("purged tickets", "count", n)
			}
		}
	}
}
