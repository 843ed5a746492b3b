// Package memory implements store.Store entirely in memory. It is the
// authoritative state during operation and the backend used by unit
// tests; pair it with a durable backend when records must survive
// restarts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	rendersched "github.com/AaraikAI/Abode-AI-sub011"
	"github.com/AaraikAI/Abode-AI-sub011/batch"
	"github.com/AaraikAI/Abode-AI-sub011/id"
	"github.com/AaraikAI/Abode-AI-sub011/job"
)

// Compile-time interface checks.
var (
	_ job.Store   = (*Store)(nil)
	_ batch.Store = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access.
type Store struct {
	mu sync.RWMutex

	jobs    map[string]*job.RenderJob
	batches map[string]*batch.Batch
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:    make(map[string]*job.RenderJob),
		batches: make(map[string]*batch.Batch),
	}
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// CreateJob persists a new job.
func (m *Store) CreateJob(_ context.Context, j *job.RenderJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, exists := m.jobs[key]; exists {
		return rendersched.ErrJobAlreadyExists
	}
	m.jobs[key] = cloneJob(j)
	return nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.RenderJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, rendersched.ErrJobNotFound
	}
	return cloneJob(j), nil
}

// UpdateJob persists changes to an existing job.
func (m *Store) UpdateJob(_ context.Context, j *job.RenderJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, ok := m.jobs[key]; !ok {
		return rendersched.ErrJobNotFound
	}
	m.jobs[key] = cloneJob(j)
	return nil
}

// DeleteJob removes a job record entirely.
func (m *Store) DeleteJob(_ context.Context, jobID id.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := jobID.String()
	if _, ok := m.jobs[key]; !ok {
		return rendersched.ErrJobNotFound
	}
	delete(m.jobs, key)
	return nil
}

// ListJobsByUser returns the user's jobs, newest first.
func (m *Store) ListJobsByUser(_ context.Context, userID string, opts job.ListOpts) ([]*job.RenderJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*job.RenderJob
	for _, j := range m.jobs {
		if j.UserID == userID {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return paginate(out, opts), nil
}

// ListJobsByStatus returns jobs matching the given status, oldest first.
func (m *Store) ListJobsByStatus(_ context.Context, status job.Status, opts job.ListOpts) ([]*job.RenderJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*job.RenderJob
	for _, j := range m.jobs {
		if j.Status == status {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return paginate(out, opts), nil
}

// ListTerminalBefore returns terminal jobs completed before the cutoff.
func (m *Store) ListTerminalBefore(_ context.Context, cutoff time.Time) ([]*job.RenderJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*job.RenderJob
	for _, j := range m.jobs {
		if !j.Status.Terminal() || j.CompletedAt == nil {
			continue
		}
		if j.CompletedAt.Before(cutoff) {
			out = append(out, cloneJob(j))
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Batch Store
// ──────────────────────────────────────────────────

// CreateBatch persists a new batch.
func (m *Store) CreateBatch(_ context.Context, b *batch.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := b.ID.String()
	if _, exists := m.batches[key]; exists {
		return rendersched.ErrBatchAlreadyExists
	}
	m.batches[key] = cloneBatch(b)
	return nil
}

// GetBatch retrieves a batch by ID.
func (m *Store) GetBatch(_ context.Context, batchID id.BatchID) (*batch.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.batches[batchID.String()]
	if !ok {
		return nil, rendersched.ErrBatchNotFound
	}
	return cloneBatch(b), nil
}

// UpdateBatch persists the cached derived fields.
func (m *Store) UpdateBatch(_ context.Context, b *batch.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := b.ID.String()
	if _, ok := m.batches[key]; !ok {
		return rendersched.ErrBatchNotFound
	}
	m.batches[key] = cloneBatch(b)
	return nil
}

// ListBatchesByUser returns the user's batches, newest first.
func (m *Store) ListBatchesByUser(_ context.Context, userID string) ([]*batch.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*batch.Batch
	for _, b := range m.batches {
		if b.UserID == userID {
			out = append(out, cloneBatch(b))
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// cloneJob deep-copies a job so callers never share the stored maps or
// timestamp pointers.
func cloneJob(j *job.RenderJob) *job.RenderJob {
	cp := *j
	if j.Metadata != nil {
		cp.Metadata = make(map[string]string, len(j.Metadata))
		for k, v := range j.Metadata {
			cp.Metadata[k] = v
		}
	}
	if j.Result != nil {
		res := *j.Result
		cp.Result = &res
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func cloneBatch(b *batch.Batch) *batch.Batch {
	cp := *b
	cp.JobIDs = make([]id.JobID, len(b.JobIDs))
	copy(cp.JobIDs, b.JobIDs)
	return &cp
}

func paginate(jobs []*job.RenderJob, opts job.ListOpts) []*job.RenderJob {
	if opts.Offset > 0 {
		if opts.Offset >= len(jobs) {
			return nil
		}
		jobs = jobs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(jobs) {
		jobs = jobs[:opts.Limit]
	}
	return jobs
}
