package domain

import "time"

type JobStatus string

const (
	JobQueued     JobStatus = "QUEUED"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransitionTo encodes QUEUED -> PROCESSING -> {COMPLETED, FAILED}.
// Only a PROCESSING job can end.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobQueued:
		return next == JobProcessing
	case JobProcessing:
		return next == JobCompleted || next == JobFailed
	default:
		return false
	}
}

type Job struct {
	JobID             string     `json:"job_id"`
	EncounterID       string     `json:"encounter_id"`
	Status            JobStatus  `json:"status"`
	StartedAt         time.Time  `json:"started_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	Error             string     `json:"error,omitempty"`
	SectionsTotal     int        `json:"sections_total"`
	SectionsSucceeded int        `json:"sections_succeeded"`
	SectionsFailed    int        `json:"sections_failed"`
}

// JobPatch carries the optional fields written alongside a transition.
type JobPatch struct {
	Error             string
	SectionsSucceeded int
	SectionsFailed    int
}
