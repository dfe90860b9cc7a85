package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob(ResizeRequest{DocID: "doc-1", TargetWidthCm: 10}, nil)
	if job.Status != StatusQueued {
		t.Fatalf("expected new job to be queued, got %q", job.Status)
	}
	if job.ID == "" {
		t.Fatal("expected a job id")
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusFetching, "fetching snapshot"},
		{StatusPlanning, "planning"},
		{StatusResizing, "resizing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	for _, s := range []JobStatus{StatusCompleted, StatusPartial, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("expected %q to be terminal", s)
		}
	}
	for _, s := range []JobStatus{StatusQueued, StatusFetching, StatusPlanning, StatusResizing} {
		if s.Terminal() {
			t.Errorf("expected %q to be active", s)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("chunk 3 failed")
	job.AddError("chunk 7 failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "chunk 3 failed" {
		t.Errorf("expected first error %q, got %q", "chunk 3 failed", snap.Progress.Errors[0])
	}
}

func TestJob_RecordChunk(t *testing.T) {
	job := &Job{ID: "chunk-test", UpdatedAt: time.Now()}
	job.SetPlan(12, 3)
	job.RecordChunk(ChunkReport{Index: 0, Images: 4, OK: true})
	job.RecordChunk(ChunkReport{Index: 1, Images: 4})

	snap := job.Snapshot()
	if snap.Progress.ChunksProcessed != 2 || snap.Progress.TotalChunks != 3 {
		t.Errorf("unexpected chunk progress %+v", snap.Progress)
	}
	if snap.Progress.Success != 4 || snap.Progress.Failed != 4 {
		t.Errorf("expected 4/4, got %d/%d", snap.Progress.Success, snap.Progress.Failed)
	}
}

func TestJob_Finish(t *testing.T) {
	tests := []struct {
		res  Result
		want JobStatus
	}{
		{Result{Success: 3, Total: 3}, StatusCompleted},
		{Result{Success: 0, Failed: 0, Total: 0}, StatusCompleted},
		{Result{Success: 2, Failed: 1, Total: 3}, StatusPartial},
		{Result{Failed: 3, Total: 3}, StatusFailed},
		{Result{Success: 1, Failed: 2, Total: 3, Cancelled: true}, StatusCancelled},
	}
	for _, tt := range tests {
		job := &Job{ID: "finish"}
		job.Finish(tt.res)
		if job.Status != tt.want {
			t.Errorf("result %+v: expected %q, got %q", tt.res, tt.want, job.Status)
		}
	}
}

func TestJob_SnapshotCopiesIDMap(t *testing.T) {
	job := &Job{ID: "snap"}
	job.Finish(Result{Success: 1, Total: 1, IDMap: map[string]string{"a": "b"}})
	snap := job.Snapshot()
	snap.IDMap["a"] = "mutated"
	if job.Snapshot().IDMap["a"] != "b" {
		t.Error("snapshot must not alias job state")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJob_CancelQueued(t *testing.T) {
	job := NewJob(ResizeRequest{DocID: "d"}, nil)
	if !job.Cancel() {
		t.Fatal("expected queued job to be cancellable")
	}
	if job.CurrentStatus() != StatusCancelled {
		t.Errorf("expected cancelled, got %q", job.CurrentStatus())
	}
	if job.Cancel() {
		t.Error("expected second cancel to report false")
	}
}

func TestJob_CancelAfterWorkerPickupKeepsDocumentBusy(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob(ResizeRequest{DocID: "doc-1"}, nil)
	if err := store.PutIfIdle(job); err != nil {
		t.Fatalf("put: %v", err)
	}
	ctx, cancel, ok := job.bindContext(context.Background())
	if !ok {
		t.Fatal("expected job to bind")
	}
	defer cancel()

	if !job.Cancel() {
		t.Fatal("expected running job to accept cancel")
	}
	if ctx.Err() == nil {
		t.Error("expected run context to be cancelled")
	}
	if job.CurrentStatus().Terminal() {
		t.Errorf("job must stay active until its worker stops, got %q", job.CurrentStatus())
	}
	if err := store.PutIfIdle(NewJob(ResizeRequest{DocID: "doc-1"}, nil)); !errors.Is(err, ErrDocumentBusy) {
		t.Errorf("expected ErrDocumentBusy while the cancelled job winds down, got %v", err)
	}
}

func TestJob_SetStatusIgnoredAfterTerminal(t *testing.T) {
	job := NewJob(ResizeRequest{DocID: "d"}, nil)
	job.Cancel()
	job.SetStatus(StatusFetching, "fetching")
	if got := job.CurrentStatus(); got != StatusCancelled {
		t.Errorf("expected cancelled to be final, got %q", got)
	}
}

func TestJob_OwnedBy(t *testing.T) {
	job := NewJob(ResizeRequest{DocID: "d", AccessToken: "ya29.owner"}, nil)
	if !job.OwnedBy("ya29.owner") {
		t.Error("expected submitting token to own the job")
	}
	if job.OwnedBy("ya29.other") || job.OwnedBy("") {
		t.Error("expected other tokens to be rejected")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nope") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_PutIfIdle(t *testing.T) {
	store := NewJobStore(time.Hour)
	first := NewJob(ResizeRequest{DocID: "doc-1"}, nil)
	if err := store.PutIfIdle(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := NewJob(ResizeRequest{DocID: "doc-1"}, nil)
	if err := store.PutIfIdle(second); !errors.Is(err, ErrDocumentBusy) {
		t.Errorf("expected ErrDocumentBusy, got %v", err)
	}
	other := NewJob(ResizeRequest{DocID: "doc-2"}, nil)
	if err := store.PutIfIdle(other); err != nil {
		t.Errorf("other documents must not be blocked: %v", err)
	}

	first.SetStatus(StatusPartial, "done")
	if err := store.PutIfIdle(second); err != nil {
		t.Errorf("expected finished job to free the document: %v", err)
	}
}

func TestJobStore_Cleanup(t *testing.T) {
	store := NewJobStore(time.Millisecond)
	old := &Job{ID: "old", Status: StatusCompleted, UpdatedAt: time.Now().Add(-time.Hour)}
	running := &Job{ID: "running", Status: StatusResizing, UpdatedAt: time.Now().Add(-time.Hour)}
	store.Put(old)
	store.Put(running)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected finished job to be evicted")
	}
	if store.Get("running") == nil {
		t.Error("expected running job to survive cleanup")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job left, got %d", store.Len())
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
