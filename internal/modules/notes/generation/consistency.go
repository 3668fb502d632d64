package generation

import (
	"context"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/prompts"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/llm"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

// NeutralConsistency is reported whenever scoring cannot be completed.
const NeutralConsistency = 0.5

// ConsistencyScorer rates how well content is supported by its context. The
// score is advisory: every failure degrades to NeutralConsistency.
type ConsistencyScorer struct {
	log     *logger.Logger
	backend llm.Backend
}

func NewConsistencyScorer(log *logger.Logger, backend llm.Backend) *ConsistencyScorer {
	return &ConsistencyScorer{log: log.With("service", "ConsistencyScorer"), backend: backend}
}

func (s *ConsistencyScorer) Score(ctx context.Context, content, contextText string) float64 {
	p, err := prompts.Build(prompts.PromptConsistencyScore, prompts.Input{
		Content: content,
		Context: contextText,
	})
	if err != nil {
		s.log.Warn("Consistency prompt invalid", "error", err)
		return NeutralConsistency
	}
	out, err := llm.CompleteStructured(ctx, s.backend, p.Messages(), p.SchemaName, p.Schema)
	if err != nil {
		s.log.Warn("Consistency scoring failed", "error", err)
		return NeutralConsistency
	}
	var res prompts.ConsistencyOutput
	if err := llm.DecodeModelJSON(out, &res); err != nil {
		s.log.Warn("Consistency output unparsable", "error", err)
		return NeutralConsistency
	}
	return normalizeScore(res.FactualConsistencyScore)
}

// normalizeScore maps a 1-10 rating onto [0, 1].
func normalizeScore(raw float64) float64 {
	v := raw / 10
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
