// Package jobs tracks the coarse lifecycle of encounter jobs. The store is
// the only state shared between concurrently running jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
)

var (
	ErrNotFound          = errors.New("job not found")
	ErrAlreadyExists     = errors.New("job already exists")
	ErrInvalidTransition = errors.New("invalid job transition")
)

// Store persists jobs. Transition must be atomic with respect to concurrent
// callers and reject any move CanTransitionTo forbids.
type Store interface {
	Create(ctx context.Context, job domain.Job) error
	Get(ctx context.Context, jobID string) (domain.Job, error)
	Transition(ctx context.Context, jobID string, to domain.JobStatus, patch domain.JobPatch) (domain.Job, error)
}

// apply validates and applies one transition to a copy of job.
func apply(job domain.Job, to domain.JobStatus, patch domain.JobPatch, now time.Time) (domain.Job, error) {
	if !job.Status.CanTransitionTo(to) {
		return job, fmt.Errorf("%w: %s -> %s (job %s)", ErrInvalidTransition, job.Status, to, job.JobID)
	}
	job.Status = to
	job.UpdatedAt = now
	if patch.Error != "" {
		job.Error = patch.Error
	}
	if to.Terminal() {
		job.SectionsSucceeded = patch.SectionsSucceeded
		job.SectionsFailed = patch.SectionsFailed
		t := now
		job.FinishedAt = &t
	}
	return job, nil
}

// NewJob builds a QUEUED job.
func NewJob(jobID, encounterID string, sections int, now time.Time) domain.Job {
	return domain.Job{
		JobID:         jobID,
		EncounterID:   encounterID,
		Status:        domain.JobQueued,
		StartedAt:     now,
		UpdatedAt:     now,
		SectionsTotal: sections,
	}
}
