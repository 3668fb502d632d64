package domain

import "strings"

type MatchType string

const (
	MatchExact    MatchType = "EXACT"
	MatchContains MatchType = "CONTAINS"
	MatchSemantic MatchType = "SEMANTIC"
)

// ConceptRecord is a vocabulary description row returned by a search tier.
type ConceptRecord struct {
	ConceptID     string `json:"concept_id"`
	PreferredTerm string `json:"preferred_term"`
	Language      string `json:"language"`
}

type TermMapping struct {
	OriginalTerm  string    `json:"original_term"`
	ConceptID     string    `json:"concept_id"`
	PreferredTerm string    `json:"preferred_term"`
	Confidence    float64   `json:"confidence"`
	MatchType     MatchType `json:"match_type"`
	Language      string    `json:"language"`
}

// LanguageVariants lists the language tags a vocabulary search accepts for
// lang: the code itself and its Canadian regional variant.
func LanguageVariants(lang string) []string {
	lang = NormalizeLanguage(lang)
	return []string{lang, lang + "-CA"}
}

// AllowsUntagged reports whether descriptions without a language tag match.
// Only the default language accepts them.
func AllowsUntagged(lang string) bool {
	return NormalizeLanguage(lang) == DefaultLanguage
}

// LanguageMatches applies the LanguageVariants/AllowsUntagged rules to a
// record's tag.
func LanguageMatches(recordLang, lang string) bool {
	recordLang = strings.TrimSpace(recordLang)
	if recordLang == "" {
		return AllowsUntagged(lang)
	}
	for _, v := range LanguageVariants(lang) {
		if strings.EqualFold(recordLang, v) {
			return true
		}
	}
	return false
}
