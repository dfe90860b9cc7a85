package pipeline

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of an asynchronous resize job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusFetching  JobStatus = "fetching"
	StatusPlanning  JobStatus = "planning"
	StatusResizing  JobStatus = "resizing"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ErrDocumentBusy is returned when a document already has an active job.
var ErrDocumentBusy = errors.New("document already has an active resize job")

// Job tracks the state of a single asynchronous resize.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	request     ResizeRequest
	api         DocsAPI
	owner       [sha256.Size]byte
	idMap       map[string]string
	errors      []string
	cancel      context.CancelFunc
	cancelAsked bool
}

// Progress tracks execution progress.
type Progress struct {
	TotalImages     int      `json:"total_images"`
	TotalChunks     int      `json:"total_chunks"`
	ChunksProcessed int      `json:"chunks_processed"`
	Success         int      `json:"success"`
	Failed          int      `json:"failed"`
	Errors          []string `json:"errors"`
}

// NewJob creates a queued job for req executed through api.
func NewJob(req ResizeRequest, api DocsAPI) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		DocID:     req.DocID,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		request:   req,
		api:       api,
		owner:     sha256.Sum256([]byte(req.AccessToken)),
	}
}

// OwnedBy reports whether token is the one the job was submitted with.
func (j *Job) OwnedBy(token string) bool {
	sum := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(sum[:], j.owner[:]) == 1
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// PutIfIdle stores job unless another non-terminal job exists for the same
// document.
func (s *JobStore) PutIfIdle(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.jobs {
		if other.DocID == job.DocID && !other.CurrentStatus().Terminal() {
			return ErrDocumentBusy
		}
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes finished jobs that have not changed within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// SetStatus updates job status atomically. A terminal status is final.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return
	}
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// CurrentStatus returns the status under the job lock.
func (j *Job) CurrentStatus() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetPlan records the planned image and chunk counts.
func (j *Job) SetPlan(images, chunks int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalImages = images
	j.Progress.TotalChunks = chunks
	j.UpdatedAt = time.Now()
}

// RecordChunk folds one chunk outcome into the progress counters.
func (j *Job) RecordChunk(r ChunkReport) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksProcessed++
	if r.OK {
		j.Progress.Success += r.Images
	} else {
		j.Progress.Failed += r.Images
	}
	j.UpdatedAt = time.Now()
}

// Finish stores the final result and picks the terminal status.
func (j *Job) Finish(res Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Success = res.Success
	j.Progress.Failed = res.Failed
	j.Progress.TotalImages = res.Total
	j.idMap = res.IDMap
	switch {
	case res.Cancelled:
		j.Status = StatusCancelled
	case res.Failed == 0:
		j.Status = StatusCompleted
	case res.Success > 0:
		j.Status = StatusPartial
	default:
		j.Status = StatusFailed
	}
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Cancel requests cancellation. A job no worker has picked up is cancelled
// immediately; a running job stays active until its worker stops at the next
// chunk boundary, so the document is not released early. It reports false if
// the job had already finished.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return false
	}
	j.cancelAsked = true
	if j.cancel != nil {
		j.cancel()
	} else {
		j.Status = StatusCancelled
		j.Phase = "cancelled before start"
	}
	j.UpdatedAt = time.Now()
	return true
}

// CancelRequested reports whether Cancel was called.
func (j *Job) CancelRequested() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelAsked
}

// bindContext derives the job's run context. It reports false when the job
// was cancelled before it started.
func (j *Job) bindContext(parent context.Context) (context.Context, context.CancelFunc, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancelAsked {
		return nil, nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	j.cancel = cancel
	return ctx, cancel, true
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string            `json:"job_id"`
	DocID     string            `json:"doc_id"`
	Status    JobStatus         `json:"status"`
	Phase     string            `json:"phase"`
	Progress  Progress          `json:"progress"`
	IDMap     map[string]string `json:"id_map,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	p := j.Progress
	p.Errors = errs
	var ids map[string]string
	if len(j.idMap) > 0 {
		ids = maps.Clone(j.idMap)
	}
	return JobSnapshot{
		ID:        j.ID,
		DocID:     j.DocID,
		Status:    j.Status,
		Phase:     j.Phase,
		Progress:  p,
		IDMap:     ids,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
