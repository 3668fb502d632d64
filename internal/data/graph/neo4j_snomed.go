package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/neo4jdb"
)

// SemanticCandidateLimit bounds the rows fetched for token-overlap ranking.
const SemanticCandidateLimit = 50

const descriptionMatch = `
MATCH (c:Concept)-[:HAS_DESCRIPTION]->(d:Description)
WHERE %s
  AND (d.languageCode IN $langs
       OR c.languageCode = $lang
       OR ($allowUntagged AND d.languageCode IS NULL))
  AND c.active = true AND d.active = true
`

const descriptionReturn = `
RETURN c.id AS conceptId,
       d.term AS preferredTerm,
       COALESCE(d.languageCode, c.languageCode, $defaultLang) AS languageCode
`

var (
	exactQuery = fmt.Sprintf(descriptionMatch, `toLower(d.term) = toLower($term)`) + descriptionReturn + `
ORDER BY size(d.term) ASC
LIMIT $limit`

	containsQuery = fmt.Sprintf(descriptionMatch, `toLower(d.term) CONTAINS toLower($term)`) + descriptionReturn + `
ORDER BY size(d.term) ASC
LIMIT $limit`

	semanticQuery = fmt.Sprintf(descriptionMatch, `any(w IN $words WHERE toLower(d.term) CONTAINS w)`) + `
WITH c, d, size([w IN $words WHERE toLower(d.term) CONTAINS w]) AS matched` + descriptionReturn + `
ORDER BY matched DESC, size(d.term) ASC
LIMIT $limit`
)

// SnomedVocabulary searches SNOMED CT descriptions stored as
// (:Concept)-[:HAS_DESCRIPTION]->(:Description).
type SnomedVocabulary struct {
	client        *neo4jdb.Client
	log           *logger.Logger
	exactLimit    int
	containsLimit int
}

func NewSnomedVocabulary(client *neo4jdb.Client, log *logger.Logger, exactLimit, containsLimit int) *SnomedVocabulary {
	return &SnomedVocabulary{
		client:        client,
		log:           log.With("service", "SnomedVocabulary"),
		exactLimit:    exactLimit,
		containsLimit: containsLimit,
	}
}

// EnsureIndexes creates lookup indexes. Failures are logged, not returned.
func (v *SnomedVocabulary) EnsureIndexes(ctx context.Context) {
	if v.client == nil || v.client.Driver == nil {
		return
	}
	session := v.client.WriteSession(ctx)
	defer session.Close(ctx)
	for _, q := range []string{
		`CREATE INDEX description_term_idx IF NOT EXISTS FOR (d:Description) ON (d.term)`,
		`CREATE INDEX concept_id_idx IF NOT EXISTS FOR (c:Concept) ON (c.id)`,
	} {
		if res, err := session.Run(ctx, q, nil); err != nil {
			v.log.Warn("neo4j schema init failed (continuing)", "error", err)
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func (v *SnomedVocabulary) SearchExact(ctx context.Context, term, language string) ([]domain.ConceptRecord, error) {
	return v.search(ctx, exactQuery, language, map[string]any{
		"term":  term,
		"limit": int64(v.exactLimit),
	})
}

func (v *SnomedVocabulary) SearchContains(ctx context.Context, term, language string) ([]domain.ConceptRecord, error) {
	return v.search(ctx, containsQuery, language, map[string]any{
		"term":  term,
		"limit": int64(v.containsLimit),
	})
}

func (v *SnomedVocabulary) SearchSemantic(ctx context.Context, term, language string) ([]domain.ConceptRecord, error) {
	words := tokenize(term)
	if len(words) == 0 {
		return nil, nil
	}
	return v.search(ctx, semanticQuery, language, map[string]any{
		"words": words,
		"limit": int64(SemanticCandidateLimit),
	})
}

func (v *SnomedVocabulary) search(ctx context.Context, query, language string, params map[string]any) ([]domain.ConceptRecord, error) {
	if v.client == nil || v.client.Driver == nil {
		return nil, fmt.Errorf("snomed vocabulary: neo4j client not configured")
	}
	for k, val := range languageParams(language) {
		params[k] = val
	}

	session := v.client.ReadSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		recs := make([]domain.ConceptRecord, 0, len(records))
		for _, r := range records {
			recs = append(recs, domain.ConceptRecord{
				ConceptID:     stringValue(r, "conceptId"),
				PreferredTerm: stringValue(r, "preferredTerm"),
				Language:      stringValue(r, "languageCode"),
			})
		}
		return recs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("snomed vocabulary: %w", err)
	}
	return out.([]domain.ConceptRecord), nil
}

// languageParams matches descriptions tagged with the language or a
// regional variant, descriptions of concepts tagged with the language, and
// untagged descriptions for the default language.
func languageParams(language string) map[string]any {
	language = domain.NormalizeLanguage(language)
	return map[string]any{
		"lang":          language,
		"langs":         domain.LanguageVariants(language),
		"allowUntagged": domain.AllowsUntagged(language),
		"defaultLang":   language,
	}
}

func stringValue(r *neo4j.Record, key string) string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func tokenize(term string) []string {
	return strings.Fields(strings.ToLower(term))
}
