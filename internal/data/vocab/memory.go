// Package vocab provides an in-process controlled vocabulary loaded from YAML.
package vocab

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
)

const SeedPathEnv = "VOCAB_SEED_YAML"

//go:embed seed.yaml
var seedFS embed.FS

type yamlVocabulary struct {
	Vocabulary string        `yaml:"vocabulary"`
	Version    int           `yaml:"version"`
	Concepts   []yamlConcept `yaml:"concepts"`
}

type yamlConcept struct {
	ID           string            `yaml:"id"`
	Lang         string            `yaml:"lang"`
	Inactive     bool              `yaml:"inactive"`
	Descriptions []yamlDescription `yaml:"descriptions"`
}

type yamlDescription struct {
	Term     string `yaml:"term"`
	Lang     string `yaml:"lang"`
	Inactive bool   `yaml:"inactive"`
}

// description carries its own language tag and the concept-level one.
type description struct {
	conceptID   string
	term        string
	lower       string
	lang        string
	conceptLang string
}

// Memory answers the three search tiers over an in-memory description list.
// It is read-only after construction.
type Memory struct {
	descriptions []description
}

// Load reads SeedPathEnv when set, otherwise the embedded seed.
func Load() (*Memory, error) {
	data, err := readSeed()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func readSeed() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(SeedPathEnv)); path != "" {
		return os.ReadFile(path)
	}
	return seedFS.ReadFile("seed.yaml")
}

func Parse(data []byte) (*Memory, error) {
	var doc yamlVocabulary
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("vocab: parse: %w", err)
	}
	if len(doc.Concepts) == 0 {
		return nil, errors.New("vocab: no concepts defined")
	}
	m := &Memory{}
	for _, c := range doc.Concepts {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, errors.New("vocab: concept id is required")
		}
		if c.Inactive {
			continue
		}
		for _, d := range c.Descriptions {
			term := strings.TrimSpace(d.Term)
			if term == "" || d.Inactive {
				continue
			}
			m.descriptions = append(m.descriptions, description{
				conceptID:   id,
				term:        term,
				lower:       strings.ToLower(term),
				lang:        strings.TrimSpace(d.Lang),
				conceptLang: strings.TrimSpace(c.Lang),
			})
		}
	}
	return m, nil
}

func (m *Memory) Len() int { return len(m.descriptions) }

func (m *Memory) SearchExact(ctx context.Context, term, language string) ([]domain.ConceptRecord, error) {
	q := strings.ToLower(strings.TrimSpace(term))
	return m.filter(language, func(d description) bool { return d.lower == q }), nil
}

func (m *Memory) SearchContains(ctx context.Context, term, language string) ([]domain.ConceptRecord, error) {
	q := strings.ToLower(strings.TrimSpace(term))
	if q == "" {
		return nil, nil
	}
	return m.filter(language, func(d description) bool { return strings.Contains(d.lower, q) }), nil
}

func (m *Memory) SearchSemantic(ctx context.Context, term, language string) ([]domain.ConceptRecord, error) {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return nil, nil
	}
	return m.filter(language, func(d description) bool {
		for _, w := range words {
			if strings.Contains(d.lower, w) {
				return true
			}
		}
		return false
	}), nil
}

func (m *Memory) filter(language string, match func(description) bool) []domain.ConceptRecord {
	language = domain.NormalizeLanguage(language)
	out := make([]domain.ConceptRecord, 0, 4)
	for _, d := range m.descriptions {
		if !d.matchesLanguage(language) || !match(d) {
			continue
		}
		lang := d.lang
		if lang == "" {
			lang = d.conceptLang
		}
		if lang == "" {
			lang = language
		}
		out = append(out, domain.ConceptRecord{ConceptID: d.conceptID, PreferredTerm: d.term, Language: lang})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].PreferredTerm) < len(out[j].PreferredTerm)
	})
	return out
}

func (d description) matchesLanguage(language string) bool {
	return domain.LanguageMatches(d.lang, language) || strings.EqualFold(d.conceptLang, language)
}
