// Package terms extracts medical terms from a transcript and resolves them
// to SNOMED concepts through a tiered vocabulary search.
package terms

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

// Vocabulary is the controlled-vocabulary backend. Each method returns
// description records for one tier; ordering and limits are applied by the
// Resolver.
type Vocabulary interface {
	// SearchExact matches the description text case-insensitively.
	SearchExact(ctx context.Context, term, language string) ([]domain.ConceptRecord, error)
	// SearchContains matches descriptions containing term.
	SearchContains(ctx context.Context, term, language string) ([]domain.ConceptRecord, error)
	// SearchSemantic returns descriptions containing at least one of the
	// term's words.
	SearchSemantic(ctx context.Context, term, language string) ([]domain.ConceptRecord, error)
}

const (
	ExactLimit    = 1
	ContainsLimit = 3
	SemanticLimit = 5

	ExactConfidence    = 1.0
	ContainsConfidence = 0.9
	SemanticBase       = 0.7

	defaultConcurrency = 4
)

type Resolver struct {
	log         *logger.Logger
	vocab       Vocabulary
	concurrency int
}

func NewResolver(log *logger.Logger, vocab Vocabulary, concurrency int) *Resolver {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Resolver{
		log:         log.With("service", "TermResolver"),
		vocab:       vocab,
		concurrency: concurrency,
	}
}

// Resolve searches the tiers in order and stops at the first tier with a
// hit. No hit at any tier yields an empty slice and no error.
func (r *Resolver) Resolve(ctx context.Context, term, language string) ([]domain.TermMapping, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	language = domain.NormalizeLanguage(language)

	exact, err := r.vocab.SearchExact(ctx, term, language)
	if err != nil {
		return nil, fmt.Errorf("exact search %q: %w", term, err)
	}
	if len(exact) > 0 {
		return r.mappings(term, language, truncate(exact, ExactLimit), domain.MatchExact, ExactConfidence), nil
	}

	contains, err := r.vocab.SearchContains(ctx, term, language)
	if err != nil {
		return nil, fmt.Errorf("contains search %q: %w", term, err)
	}
	if len(contains) > 0 {
		sortShortestFirst(contains)
		return r.mappings(term, language, truncate(contains, ContainsLimit), domain.MatchContains, ContainsConfidence), nil
	}

	candidates, err := r.vocab.SearchSemantic(ctx, term, language)
	if err != nil {
		return nil, fmt.Errorf("semantic search %q: %w", term, err)
	}
	out := rankSemantic(term, language, candidates)
	if len(out) == 0 {
		r.log.Debug("Term not found in vocabulary", "term", term, "language", language)
		return []domain.TermMapping{}, nil
	}
	r.log.Debug("Term resolved", "term", term, "match_type", domain.MatchSemantic, "count", len(out))
	return out, nil
}

// ResolveAll resolves each distinct term once and flattens the results in
// input order. A failing term is logged and contributes nothing.
func (r *Resolver) ResolveAll(ctx context.Context, terms []string, language string) []domain.TermMapping {
	unique := Dedupe(terms)
	results := make([][]domain.TermMapping, len(unique))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, term := range unique {
		g.Go(func() error {
			mappings, err := r.Resolve(ctx, term, language)
			if err != nil {
				r.log.Warn("Term resolution failed", "term", term, "error", err)
				return nil
			}
			results[i] = mappings
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.TermMapping, 0, len(unique))
	for _, rs := range results {
		out = append(out, rs...)
	}
	r.log.Info("Terms resolved", "terms", len(unique), "mappings", len(out), "language", language)
	return out
}

func (r *Resolver) mappings(term, language string, recs []domain.ConceptRecord, mt domain.MatchType, confidence float64) []domain.TermMapping {
	out := make([]domain.TermMapping, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toMapping(term, language, rec, mt, confidence))
	}
	r.log.Debug("Term resolved", "term", term, "match_type", mt, "count", len(out))
	return out
}

func toMapping(term, language string, rec domain.ConceptRecord, mt domain.MatchType, confidence float64) domain.TermMapping {
	lang := rec.Language
	if lang == "" {
		lang = language
	}
	return domain.TermMapping{
		OriginalTerm:  term,
		ConceptID:     rec.ConceptID,
		PreferredTerm: rec.PreferredTerm,
		Confidence:    confidence,
		MatchType:     mt,
		Language:      lang,
	}
}

// rankSemantic scores candidates by the share of query words they contain.
func rankSemantic(term, language string, candidates []domain.ConceptRecord) []domain.TermMapping {
	words := Tokenize(term)
	if len(words) == 0 {
		return nil
	}
	out := make([]domain.TermMapping, 0, len(candidates))
	for _, rec := range candidates {
		text := strings.ToLower(rec.PreferredTerm)
		matched := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		confidence := SemanticBase * (float64(matched) / float64(len(words)))
		out = append(out, toMapping(term, language, rec, domain.MatchSemantic, confidence))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return len(out[i].PreferredTerm) < len(out[j].PreferredTerm)
	})
	if len(out) > SemanticLimit {
		out = out[:SemanticLimit]
	}
	return out
}

// Tokenize lowercases and splits on whitespace.
func Tokenize(term string) []string {
	return strings.Fields(strings.ToLower(term))
}

// Dedupe drops blanks and case-insensitive repeats, keeping first-seen order.
func Dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func sortShortestFirst(recs []domain.ConceptRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return len(recs[i].PreferredTerm) < len(recs[j].PreferredTerm)
	})
}

func truncate(recs []domain.ConceptRecord, n int) []domain.ConceptRecord {
	if len(recs) > n {
		return recs[:n]
	}
	return recs
}
