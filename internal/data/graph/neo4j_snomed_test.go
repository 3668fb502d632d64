package graph

import (
	"context"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/neo4jdb"
)

// newTestVocabulary connects to TEST_NEO4J_URI and seeds a few descriptions
// under a test-only concept id prefix.
func newTestVocabulary(t *testing.T) *SnomedVocabulary {
	t.Helper()
	uri := os.Getenv("TEST_NEO4J_URI")
	if uri == "" {
		t.Skip("TEST_NEO4J_URI not set; skipping neo4j integration tests")
	}
	t.Setenv("NEO4J_URI", uri)
	client, err := neo4jdb.NewFromEnv(logger.Nop())
	if err != nil {
		t.Fatalf("neo4j connect: %v", err)
	}
	ctx := context.Background()
	t.Cleanup(func() { _ = client.Close(ctx) })

	seed := []map[string]any{
		{"id": "test-38341003", "term": "Hypertension", "lang": "en"},
		{"id": "test-59621000", "term": "Essential hypertension", "lang": "en"},
		{"id": "test-38341003", "term": "Hypertension artérielle", "lang": "fr-CA"},
		{"id": "test-29857009", "term": "Chest pain", "lang": nil},
		{"id": "test-49727002", "term": "Toux sèche", "lang": nil, "conceptLang": "fr"},
	}
	session := client.WriteSession(ctx)
	defer session.Close(ctx)
	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $rows AS row
MERGE (c:Concept {id: row.id})
SET c.active = true, c.languageCode = COALESCE(row.conceptLang, c.languageCode)
MERGE (d:Description {term: row.term, conceptRef: row.id})
SET d.active = true, d.languageCode = row.lang
MERGE (c)-[:HAS_DESCRIPTION]->(d)`, map[string]any{"rows": seed})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	t.Cleanup(func() {
		s := client.WriteSession(ctx)
		defer s.Close(ctx)
		_, _ = s.Run(ctx, `MATCH (c:Concept) WHERE c.id STARTS WITH 'test-' DETACH DELETE c`, nil)
		_, _ = s.Run(ctx, `MATCH (d:Description) WHERE d.conceptRef STARTS WITH 'test-' DETACH DELETE d`, nil)
	})
	return NewSnomedVocabulary(client, logger.Nop(), 1, 3)
}

func TestSnomedVocabularyTiers(t *testing.T) {
	v := newTestVocabulary(t)
	ctx := context.Background()

	exact, err := v.SearchExact(ctx, "hypertension", "en")
	if err != nil {
		t.Fatalf("SearchExact: %v", err)
	}
	if len(exact) != 1 || exact[0].PreferredTerm != "Hypertension" {
		t.Fatalf("exact: got=%+v", exact)
	}

	fr, err := v.SearchContains(ctx, "artérielle", "fr")
	if err != nil {
		t.Fatalf("SearchContains fr: %v", err)
	}
	if len(fr) != 1 || fr[0].Language != "fr-CA" {
		t.Fatalf("french regional variant: got=%+v", fr)
	}

	untaggedFr, err := v.SearchContains(ctx, "chest pain", "fr")
	if err != nil {
		t.Fatalf("SearchContains untagged: %v", err)
	}
	if len(untaggedFr) != 0 {
		t.Fatalf("untagged descriptions must not match french: got=%+v", untaggedFr)
	}

	sem, err := v.SearchSemantic(ctx, "pain chest left", "en")
	if err != nil {
		t.Fatalf("SearchSemantic: %v", err)
	}
	if len(sem) == 0 || sem[0].PreferredTerm != "Chest pain" {
		t.Fatalf("semantic: got=%+v", sem)
	}
}

func TestConceptLanguageMatches(t *testing.T) {
	v := newTestVocabulary(t)
	got, err := v.SearchContains(context.Background(), "toux", "fr")
	if err != nil {
		t.Fatalf("SearchContains: %v", err)
	}
	if len(got) != 1 || got[0].ConceptID != "test-49727002" || got[0].Language != "fr" {
		t.Fatalf("concept-tagged description: got=%+v", got)
	}
}

func TestQueriesFilterOnConceptLanguage(t *testing.T) {
	for name, q := range map[string]string{"exact": exactQuery, "contains": containsQuery, "semantic": semanticQuery} {
		if !strings.Contains(q, "c.languageCode = $lang") {
			t.Fatalf("%s query lacks the concept language clause:\n%s", name, q)
		}
	}
}

func TestLanguageParams(t *testing.T) {
	fr := languageParams("FR")
	if fr["lang"] != "fr" || fr["allowUntagged"] != false {
		t.Fatalf("fr params: got=%v", fr)
	}
	if !reflect.DeepEqual(fr["langs"], []string{"fr", "fr-CA"}) {
		t.Fatalf("fr variants: got=%v", fr["langs"])
	}
	if en := languageParams(""); en["lang"] != "en" || en["allowUntagged"] != true {
		t.Fatalf("default params: got=%v", en)
	}
}
