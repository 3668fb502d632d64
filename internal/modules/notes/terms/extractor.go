package terms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/prompts"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/llm"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

// Extractor pulls candidate terms from a whole encounter in one backend call.
type Extractor struct {
	log     *logger.Logger
	backend llm.Backend
}

func NewExtractor(log *logger.Logger, backend llm.Backend) *Extractor {
	return &Extractor{log: log.With("service", "TermExtractor"), backend: backend}
}

// Extract returns deduplicated terms in first-mention order. A backend error
// is returned; output that cannot be parsed yields no terms.
func (e *Extractor) Extract(ctx context.Context, transcriptText, language string) ([]string, error) {
	language = domain.NormalizeLanguage(language)
	p, err := prompts.Build(prompts.PromptTermExtraction, prompts.Input{
		Language:   domain.LanguageName(language),
		Transcript: transcriptText,
	})
	if err != nil {
		return nil, err
	}
	out, err := llm.CompleteStructured(ctx, e.backend, p.Messages(), p.SchemaName, p.Schema)
	if err != nil {
		return nil, fmt.Errorf("term extraction: %w", err)
	}
	terms, err := parseTerms(out)
	if err != nil {
		e.log.Warn("Term extraction output unparsable", "error", err, "output_chars", len(out))
		return []string{}, nil
	}
	terms = Dedupe(terms)
	e.log.Info("Terms extracted", "count", len(terms), "language", language)
	return terms, nil
}

// parseTerms accepts {"terms": [...]} or a bare list of strings.
func parseTerms(text string) ([]string, error) {
	raw, err := llm.ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list, nil
	}
	var obj prompts.TermListOutput
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, err
	}
	return obj.Terms, nil
}
