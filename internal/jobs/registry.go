// Package jobs holds per-document job state for status polling.
package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"epcsync/internal/domain"
)

// Registry is a process-scoped map of jobs keyed by document identity. The
// pipeline writes it; HTTP handlers read it. Readers get copies, so a caller
// never observes a job mid-update.
type Registry struct {
	mu      sync.RWMutex
	jobs    map[string]*domain.Job
	cancels map[string]context.CancelFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:    make(map[string]*domain.Job),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Create registers a queued job for identity. It fails with
// domain.ErrJobActive while a non-terminal job exists for the identity; a
// terminal one is replaced.
func (r *Registry) Create(identity, fileName string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.jobs[identity]; ok && !existing.State.Terminal() {
		return nil, domain.ErrJobActive
	}
	now := time.Now().UTC()
	job := &domain.Job{
		ID:        uuid.New(),
		Identity:  identity,
		FileName:  fileName,
		State:     domain.JobQueued,
		Stage:     domain.StageQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.jobs[identity] = job
	delete(r.cancels, identity)
	return cloneJob(job), nil
}

// Update applies fn to the job under the write lock and stamps UpdatedAt.
// StartedAt and CompletedAt are set on the first transition out of queued
// and into a terminal state respectively. fn must not block.
func (r *Registry) Update(identity string, fn func(*domain.Job)) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[identity]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	fn(job)
	r.stamp(job)
	return cloneJob(job), nil
}

// stamp must be called with the write lock held.
func (r *Registry) stamp(job *domain.Job) {
	now := time.Now().UTC()
	job.UpdatedAt = now
	if job.StartedAt == nil && job.State != domain.JobQueued {
		job.StartedAt = &now
	}
	if job.State.Terminal() {
		if job.CompletedAt == nil {
			job.CompletedAt = &now
		}
		delete(r.cancels, job.Identity)
	}
}

func (r *Registry) Get(identity string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[identity]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return cloneJob(job), nil
}

// List returns copies of every job, newest first.
func (r *Registry) List() []*domain.Job {
	r.mu.RLock()
	out := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, cloneJob(job))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Identity < out[j].Identity
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Clear removes terminal jobs and returns how many were removed. Active jobs
// are kept.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for identity, job := range r.jobs {
		if job.State.Terminal() {
			delete(r.jobs, identity)
			n++
		}
	}
	return n
}

// Remove deletes the job for identity regardless of state.
func (r *Registry) Remove(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, identity)
	delete(r.cancels, identity)
}

// Begin claims the queued job id for processing and attaches the cancel
// func of its context. It reports false when the job was cancelled, replaced
// or removed while it waited in the queue; the caller must not process it.
func (r *Registry) Begin(identity string, id uuid.UUID, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[identity]
	if !ok || job.ID != id || job.State != domain.JobQueued {
		return false
	}
	r.cancels[identity] = cancel
	return true
}

// Abort fails the job id if it is still queued. It reports whether the job
// was changed.
func (r *Registry) Abort(identity string, id uuid.UUID, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[identity]
	if !ok || job.ID != id || job.State != domain.JobQueued {
		return false
	}
	if _, running := r.cancels[identity]; running {
		return false
	}
	failQueued(job, reason)
	r.stamp(job)
	return true
}

// Cancel stops the job for identity. A job still waiting in the queue fails
// immediately and is never processed. A running job has its context
// cancelled; the pipeline observes it before its next network call and moves
// the job to failed. Jobs awaiting review are resolved through Discard, so
// they get domain.ErrJobNotActive here, as do terminal jobs.
func (r *Registry) Cancel(identity string) error {
	r.mu.Lock()
	job, ok := r.jobs[identity]
	if !ok {
		r.mu.Unlock()
		return domain.ErrJobNotFound
	}
	if job.State.Terminal() || job.State == domain.JobPendingReview {
		r.mu.Unlock()
		return domain.ErrJobNotActive
	}
	cancel, running := r.cancels[identity]
	if !running {
		failQueued(job, "cancelled before processing started")
		r.stamp(job)
		r.mu.Unlock()
		return nil
	}
	delete(r.cancels, identity)
	r.mu.Unlock()

	cancel()
	return nil
}

func failQueued(job *domain.Job, reason string) {
	job.State = domain.JobFailed
	job.ErrorStage = job.Stage
	job.Error = reason
}

// cloneJob copies the job and the pointers a reader could otherwise share
// with a writer. Record and Outcome are replaced wholesale by the pipeline,
// never mutated in place, so sharing them is safe.
func cloneJob(j *domain.Job) *domain.Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
