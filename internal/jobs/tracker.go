package jobs

import (
	"context"
	"strings"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
)

// Tracker is the read-only projection served to pollers.
type Tracker struct {
	store Store
}

func NewTracker(store Store) *Tracker { return &Tracker{store: store} }

func (t *Tracker) GetJobStatus(ctx context.Context, jobID string) (domain.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return domain.Job{}, ErrNotFound
	}
	return t.store.Get(ctx, jobID)
}
