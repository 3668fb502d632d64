package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

var (
	ErrInvalidRequest   = errors.New("invalid encounter request")
	ErrNoUsableTurns    = errors.New("transcript has no usable turns")
	ErrNoUsableSections = errors.New("request has no usable sections")
)

// Validate checks the encounter-level fields every job needs before it is
// queued. Individual sections are screened by UsableSections.
func Validate(req domain.EncounterRequest) error {
	var problems []string
	if strings.TrimSpace(req.EncounterID) == "" {
		problems = append(problems, "encounterId required")
	}
	if strings.TrimSpace(req.ClinicID) == "" {
		problems = append(problems, "clinicId required")
	}
	if len(req.Transcript) == 0 {
		problems = append(problems, "encounterTranscript must not be empty")
	}
	if len(req.Sections) == 0 {
		problems = append(problems, "at least one section required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

// UsableSections drops sections with a blank id, name or prompt and later
// duplicates of an id, logging each one. Order is preserved.
func UsableSections(log *logger.Logger, sections []domain.SectionRequest) []domain.SectionRequest {
	out := make([]domain.SectionRequest, 0, len(sections))
	seen := map[string]bool{}
	for i, s := range sections {
		id := strings.TrimSpace(s.ID)
		reason := ""
		switch {
		case id == "":
			reason = "id required"
		case seen[id]:
			reason = "duplicate id"
		case strings.TrimSpace(s.Name) == "":
			reason = "name required"
		case strings.TrimSpace(s.Prompt) == "":
			reason = "prompt required"
		}
		if reason != "" {
			log.Warn("Dropping section", "index", i, "section_id", id, "reason", reason)
			continue
		}
		seen[id] = true
		out = append(out, s)
	}
	return out
}
