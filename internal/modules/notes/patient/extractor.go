// Package patient extracts patient demographics stated in an encounter.
package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/prompts"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/llm"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

type Extractor struct {
	log     *logger.Logger
	backend llm.Backend
}

func NewExtractor(log *logger.Logger, backend llm.Backend) *Extractor {
	return &Extractor{log: log.With("service", "PatientInfoExtractor"), backend: backend}
}

// Extract makes one backend call over the formatted transcript. Blank
// values come back as nil.
func (e *Extractor) Extract(ctx context.Context, transcriptText string) (domain.PatientInfo, error) {
	p, err := prompts.Build(prompts.PromptPatientInfo, prompts.Input{Transcript: transcriptText})
	if err != nil {
		return domain.PatientInfo{}, err
	}
	out, err := llm.CompleteStructured(ctx, e.backend, p.Messages(), p.SchemaName, p.Schema)
	if err != nil {
		return domain.PatientInfo{}, fmt.Errorf("patient info: %w", err)
	}
	var info domain.PatientInfo
	if err := llm.DecodeModelJSON(out, &info); err != nil {
		return domain.PatientInfo{}, fmt.Errorf("patient info output: %w", err)
	}
	info.FirstName = clean(info.FirstName)
	info.LastName = clean(info.LastName)
	info.DateOfBirth = clean(info.DateOfBirth)
	info.Gender = clean(info.Gender)

	e.log.Info("Patient info extracted",
		"has_first_name", info.FirstName != nil,
		"has_last_name", info.LastName != nil,
		"has_date_of_birth", info.DateOfBirth != nil,
		"has_gender", info.Gender != nil,
	)
	return info, nil
}

func clean(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	switch strings.ToLower(s) {
	case "", "null", "none", "unknown", "n/a":
		return nil
	}
	return &s
}
