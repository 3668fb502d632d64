package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
)

type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[string]domain.Job{}, now: time.Now}
}

func (s *MemoryStore) Create(ctx context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.JobID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, job.JobID)
	}
	s.jobs[job.JobID] = job
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, jobID string) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.Job{}, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return job, nil
}

func (s *MemoryStore) Transition(ctx context.Context, jobID string, to domain.JobStatus, patch domain.JobPatch) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.Job{}, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	next, err := apply(job, to, patch, s.now())
	if err != nil {
		return job, err
	}
	s.jobs[jobID] = next
	return next, nil
}
