package job

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// NotFoundError indicates an unknown job id.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.ID)
}

// Registry is the keyed job store consulted by the orchestrator and by
// polling callers. Each stage transition is committed through Update before
// the next stage starts, so the registry always reflects the last completed
// stage.
type Registry interface {
	Create(ctx context.Context, j *Job) error
	// Get returns a snapshot of the job, or *NotFoundError.
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	// Update commits the whole record atomically.
	Update(ctx context.Context, j *Job) error
	// List returns snapshots of all jobs, newest first.
	List(ctx context.Context) ([]*Job, error)
}

// MemoryRegistry is the in-process Registry used when no database is
// configured. Records are partitioned by job id; a single RWMutex guards
// the map, and clones keep readers isolated from in-flight updates.
type MemoryRegistry struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{jobs: make(map[uuid.UUID]*Job)}
}

// Create stores a new job record.
func (r *MemoryRegistry) Create(ctx context.Context, j *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[j.ID]; exists {
		return fmt.Errorf("job already exists: %s", j.ID)
	}
	r.jobs[j.ID] = j.Clone()
	return nil
}

// Get returns a snapshot of the job.
func (r *MemoryRegistry) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return j.Clone(), nil
}

// Update replaces the stored record atomically.
func (r *MemoryRegistry) Update(ctx context.Context, j *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; !ok {
		return &NotFoundError{ID: j.ID}
	}
	r.jobs[j.ID] = j.Clone()
	return nil
}

// List returns snapshots of all jobs, newest first.
func (r *MemoryRegistry) List(ctx context.Context) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}
