package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mafadubu/google-docs-resizer/internal/docs"
	"github.com/mafadubu/google-docs-resizer/internal/doctree"
	"github.com/mafadubu/google-docs-resizer/internal/resize"
)

// fakeDocs records batch calls and answers inserts with fresh object ids.
type fakeDocs struct {
	mu       sync.Mutex
	doc      *doctree.Document
	getErr   error
	calls    [][]docs.Request
	ctxAlive []bool
	// fail decides the outcome of the n-th call (1-based).
	fail   func(n int, ctx context.Context) error
	nextID int
}

func (f *fakeDocs) GetDocument(_ context.Context, _ string) (*doctree.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.doc, nil
}

func (f *fakeDocs) BatchUpdate(ctx context.Context, _ string, reqs []docs.Request) ([]docs.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, reqs)
	f.ctxAlive = append(f.ctxAlive, ctx.Err() == nil)
	if f.fail != nil {
		if err := f.fail(len(f.calls), ctx); err != nil {
			return nil, err
		}
	}
	replies := make([]docs.Response, len(reqs))
	for i, r := range reqs {
		if r.IsInsert() {
			f.nextID++
			replies[i] = docs.Response{InsertInlineImage: &docs.InsertInlineImageReply{ObjectID: fmt.Sprintf("new-%d", f.nextID)}}
		}
	}
	return replies, nil
}

func (f *fakeDocs) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// sortedActions returns n inline delete/insert actions in execution order.
func sortedActions(n int) []resize.Action {
	actions := make([]resize.Action, n)
	for i := range actions {
		actions[i] = resize.Action{
			Kind:    resize.DeleteInsert,
			ImageID: fmt.Sprintf("img-%02d", i),
			Anchor:  int64(1000 - i*10),
			URI:     fmt.Sprintf("https://img/%d", i),
			Width:   283.465,
			Height:  100,
		}
	}
	return actions
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
