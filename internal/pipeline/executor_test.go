package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mafadubu/google-docs-resizer/internal/docs"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testExecutor(chunkSize, maxRetries int) *Executor {
	e := NewExecutor(RetryPolicy{ChunkSize: chunkSize, MaxRetries: maxRetries, BackoffBase: time.Millisecond, BackoffMax: time.Millisecond}, quietLogger(), nil, NewBatchStats(time.Hour))
	e.sleep = noSleep
	return e
}

func assertTally(t *testing.T, res Result) {
	t.Helper()
	if res.Success+res.Failed != res.Total {
		t.Errorf("success %d + failed %d != total %d", res.Success, res.Failed, res.Total)
	}
}

func TestRun_PartialFailureContinues(t *testing.T) {
	api := &fakeDocs{fail: func(n int, _ context.Context) error {
		if n == 2 {
			return &docs.APIError{StatusCode: 400, Message: "Invalid requests[3]"}
		}
		return nil
	}}
	res := testExecutor(4, 3).Run(context.Background(), api, "doc", sortedActions(12), nil)

	if res.Success != 8 || res.Failed != 4 || res.Total != 12 {
		t.Errorf("expected 8/4/12, got %d/%d/%d", res.Success, res.Failed, res.Total)
	}
	if api.callCount() != 3 {
		t.Errorf("permanent errors must not be retried: %d calls", api.callCount())
	}
	if len(res.IDMap) != 8 {
		t.Errorf("expected 8 reconciled ids, got %d", len(res.IDMap))
	}
	for _, id := range []string{"img-04", "img-05", "img-06", "img-07"} {
		if _, ok := res.IDMap[id]; ok {
			t.Errorf("%s belongs to the failed chunk and must stay unmapped", id)
		}
	}
	if len(res.Chunks) != 3 || res.Chunks[1].OK || res.Chunks[1].Error == "" {
		t.Errorf("unexpected chunk reports %+v", res.Chunks)
	}
	assertTally(t, res)
}

func TestRun_RetriesTransientWithSamePayload(t *testing.T) {
	api := &fakeDocs{fail: func(n int, _ context.Context) error {
		if n == 1 {
			return &docs.RetryableError{StatusCode: 500, Message: "Internal error encountered."}
		}
		return nil
	}}
	res := testExecutor(5, 3).Run(context.Background(), api, "doc", sortedActions(3), nil)

	if res.Success != 3 || res.Failed != 0 {
		t.Errorf("expected all to succeed after retry, got %d/%d", res.Success, res.Failed)
	}
	if api.callCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", api.callCount())
	}
	if len(api.calls[0]) != len(api.calls[1]) {
		t.Error("retry must resubmit the identical chunk")
	}
	if res.Chunks[0].Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", res.Chunks[0].Attempts)
	}
	assertTally(t, res)
}

func TestRun_RetriesExhausted(t *testing.T) {
	api := &fakeDocs{fail: func(int, context.Context) error {
		return &docs.RetryableError{StatusCode: 503, Message: "unavailable"}
	}}
	res := testExecutor(5, 2).Run(context.Background(), api, "doc", sortedActions(7), nil)

	// 1 + 2 retries per chunk, two chunks.
	if api.callCount() != 6 {
		t.Errorf("expected 6 calls, got %d", api.callCount())
	}
	if res.Success != 0 || res.Failed != 7 {
		t.Errorf("expected 0/7, got %d/%d", res.Success, res.Failed)
	}
	assertTally(t, res)
}

func TestRun_CancelAtChunkBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api := &fakeDocs{}
	var reports []ChunkReport
	res := testExecutor(4, 3).Run(ctx, api, "doc", sortedActions(12), func(r ChunkReport) {
		reports = append(reports, r)
		if r.Index == 0 {
			cancel()
		}
	})

	if !res.Cancelled {
		t.Error("expected cancelled result")
	}
	if api.callCount() != 1 || len(reports) != 1 {
		t.Errorf("expected exactly one submitted chunk, got %d calls", api.callCount())
	}
	if res.Success != 4 || res.Failed != 8 {
		t.Errorf("expected 4/8, got %d/%d", res.Success, res.Failed)
	}
	assertTally(t, res)
}

func TestRun_CancelDuringRetryKeepsInflightResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api := &fakeDocs{fail: func(n int, _ context.Context) error {
		if n == 2 {
			cancel()
			return &docs.RetryableError{StatusCode: 500, Message: "backend error"}
		}
		return nil
	}}
	res := testExecutor(2, 3).Run(ctx, api, "doc", sortedActions(6), nil)

	if api.callCount() != 2 {
		t.Errorf("expected no resubmission after cancel, got %d calls", api.callCount())
	}
	if res.Success != 2 || res.Failed != 4 || !res.Cancelled {
		t.Errorf("expected 2/4 cancelled, got %+v", res)
	}
	for i, alive := range api.ctxAlive {
		if !alive {
			t.Errorf("call %d ran on a cancelled context", i+1)
		}
	}
	assertTally(t, res)
}

func TestRun_InflightCallIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api := &fakeDocs{}
	e := testExecutor(5, 0)
	c := BuildChunks(sortedActions(1), 5)[0]
	report, _ := e.runChunk(ctx, api, "doc", c, map[string]string{}, quietLogger())
	if !report.OK {
		t.Errorf("expected the submitted call to complete, got %+v", report)
	}
	if !api.ctxAlive[0] {
		t.Error("expected the call context to be detached from cancellation")
	}
}

func TestRun_Empty(t *testing.T) {
	api := &fakeDocs{}
	res := testExecutor(5, 3).Run(context.Background(), api, "doc", nil, nil)
	if res.Total != 0 || api.callCount() != 0 || res.IDMap == nil {
		t.Errorf("unexpected result for empty plan %+v", res)
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{BackoffBase: 100 * time.Millisecond, BackoffMax: time.Second}
	for attempt := range 8 {
		d := p.Backoff(attempt)
		base := min(100*time.Millisecond<<attempt, time.Second)
		if d < base || d > base+base/2 {
			t.Errorf("attempt %d: %v outside [%v, %v]", attempt, d, base, base+base/2)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&docs.RetryableError{StatusCode: 500}) {
		t.Error("expected RetryableError to be retryable")
	}
	if IsRetryable(&docs.APIError{StatusCode: 429}) {
		t.Error("quota errors must not be retried")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}

func TestBatchStats(t *testing.T) {
	s := NewBatchStats(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	for _, ms := range []int{10, 20, 30, 40} {
		s.Record(time.Duration(ms)*time.Millisecond, ms == 40)
	}
	snap := s.Snapshot()
	if snap.Calls != 4 || snap.Failures != 1 || snap.MinMs != 10 || snap.MaxMs != 40 || snap.AvgMs != 25 || snap.P50Ms != 25 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	now = now.Add(2 * time.Minute)
	if got := s.Snapshot(); got.Calls != 0 {
		t.Errorf("expected window to expire samples, got %+v", got)
	}
}
