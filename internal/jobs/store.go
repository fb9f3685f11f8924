package jobs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository stores job records by id.
type Repository interface {
	// Create stores a new job. Returns *DuplicateError if the id exists.
	Create(ctx context.Context, job *Job) error
	// Get returns a point-in-time copy of the job or *NotFoundError.
	Get(ctx context.Context, id string) (Job, error)
	// List returns copies of all jobs, newest first.
	List(ctx context.Context) ([]Job, error)
	// Process runs fn with exclusive turn ownership of the job: handlers for
	// the same job never overlap, handlers for different jobs run freely.
	Process(ctx context.Context, id string, fn func(rec *Record) error) error
	// Update mutates the job without waiting for its turn and returns the
	// resulting state. Used for events that must not queue behind an
	// in-flight turn, such as call termination.
	Update(ctx context.Context, id string, fn func(job *Job) error) (Job, error)
}

// Record gives a turn handler access to one live job.
// Each View/Update is atomic with respect to readers; a handler may block
// between them (e.g. on the dialogue engine) while keeping turn ownership.
type Record struct {
	mu  *sync.RWMutex
	job *Job
	now func() time.Time
}

// View returns a copy of the current job state.
func (r *Record) View() Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.job.Clone()
}

// Update mutates the job. UpdatedAt is bumped only when fn succeeds; fn must
// leave the job untouched when it returns an error.
func (r *Record) Update(fn func(job *Job) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := fn(r.job); err != nil {
		return err
	}
	r.job.UpdatedAt = r.now()
	return nil
}

type entry struct {
	turn chan struct{} // capacity 1, held for the duration of Process
	mu   sync.RWMutex
	job  *Job
}

// MemoryStore is an in-memory Repository. Jobs live for the process lifetime.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemoryStore creates an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// WithClock replaces the clock used to stamp UpdatedAt. Intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Create stores a copy of job.
func (s *MemoryStore) Create(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[job.ID]; exists {
		return &DuplicateError{ID: job.ID}
	}
	cp := job.Clone()
	s.entries[job.ID] = &entry{
		turn: make(chan struct{}, 1),
		job:  &cp,
	}
	return nil
}

// Get returns a copy of the job.
func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Job{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.job.Clone(), nil
}

// List returns copies of all jobs ordered by creation time, newest first.
func (s *MemoryStore) List(_ context.Context) ([]Job, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Job, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		out = append(out, e.job.Clone())
		e.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Process acquires the job's turn, runs fn and releases the turn.
// Waiting for the turn honours ctx cancellation.
func (s *MemoryStore) Process(ctx context.Context, id string, fn func(rec *Record) error) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	select {
	case e.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.turn }()

	return fn(&Record{mu: &e.mu, job: e.job, now: s.now})
}

// Update applies fn under the job's field lock. UpdatedAt is bumped only when
// fn succeeds.
func (s *MemoryStore) Update(_ context.Context, id string, fn func(job *Job) error) (Job, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Job{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e.job); err != nil {
		return e.job.Clone(), err
	}
	e.job.UpdatedAt = s.now()
	return e.job.Clone(), nil
}

func (s *MemoryStore) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return e, nil
}
