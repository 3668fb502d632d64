// Package generation produces one note section from retrieved context and
// validates its transcript citations.
package generation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/prompts"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/transcript"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/llm"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

const traceOutputLimit = 2000

type Input struct {
	Section       domain.SectionRequest
	Language      string
	SystemPrompt  string
	ContextText   string
	TermMappings  []domain.TermMapping
	Preferences   map[string]string
	PriorSections string
	Transcript    []domain.TranscriptTurn
}

type Generator struct {
	log     *logger.Logger
	backend llm.Backend
	scorer  *ConsistencyScorer
}

func NewGenerator(log *logger.Logger, backend llm.Backend) *Generator {
	return &Generator{
		log:     log.With("service", "SectionGenerator"),
		backend: backend,
		scorer:  NewConsistencyScorer(log, backend),
	}
}

// Generate runs one attempt. It never returns an error: transport and
// contract problems come back as a Failure.
func (g *Generator) Generate(ctx context.Context, in Input) Outcome {
	p, err := prompts.Build(prompts.PromptSectionNote, PromptInput(in))
	if err != nil {
		return Fail(FailureBackend, err.Error(), "")
	}

	out, err := llm.CompleteStructured(ctx, g.backend, p.Messages(), p.SchemaName, p.Schema)
	if err != nil {
		g.log.Warn("Section generation call failed", "section_id", in.Section.ID, "error", err)
		return Fail(FailureBackend, err.Error(), fmt.Sprintf("%+v", err))
	}

	idx := transcript.NewIndex(in.Transcript)
	res, err := parseSection(out, idx)
	if err != nil {
		g.log.Warn("Section output unparsable", "section_id", in.Section.ID, "error", err, "output_chars", len(out))
		return Fail(FailureParse, err.Error(), truncate(out, traceOutputLimit))
	}

	refs := ValidateReferences(res.References, idx)
	if dropped := len(res.References) - len(refs) + res.Discarded; dropped > 0 {
		g.log.Info("Dropped invalid line references",
			"section_id", in.Section.ID,
			"kept", len(refs),
			"dropped", dropped,
		)
	}

	score := g.scorer.Score(ctx, res.Content, in.ContextText)
	return Ok(Draft{
		Content:            res.Content,
		LineReferences:     refs,
		ConfidenceScore:    score,
		PreferencesApplied: len(in.Preferences) > 0,
	})
}

// PromptInput renders the generator input into prompt fields.
func PromptInput(in Input) prompts.Input {
	return prompts.Input{
		Language:      domain.LanguageName(in.Language),
		SystemPrompt:  strings.TrimSpace(in.SystemPrompt),
		SectionName:   in.Section.Name,
		SectionPrompt: in.Section.Prompt,
		Transcript:    transcript.Format(in.Transcript),
		Context:       in.ContextText,
		TermMappings:  formatMappings(in.TermMappings),
		Preferences:   formatPreferences(in.Preferences),
		PriorSections: in.PriorSections,
	}
}

func formatMappings(ms []domain.TermMapping) string {
	lines := make([]string, 0, len(ms))
	for _, m := range ms {
		lines = append(lines, fmt.Sprintf("- %s -> %s (SNOMED %s, %s)", m.OriginalTerm, m.PreferredTerm, m.ConceptID, m.MatchType))
	}
	return strings.Join(lines, "\n")
}

func formatPreferences(prefs map[string]string) string {
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %q -> %q", k, prefs[k]))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
