// Package chunks stores turn chunks per encounter and ranks them against a
// section query.
package chunks

import (
	"sort"
	"strings"
	"unicode"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
)

const (
	speakerWeight = 0.25
	orderWeight   = 0.1
)

var stopwords = map[string]bool{
	"and": true, "are": true, "for": true, "from": true, "has": true, "have": true,
	"information": true, "into": true, "not": true, "that": true, "the": true,
	"this": true, "was": true, "were": true, "with": true, "you": true, "your": true,
	"les": true, "des": true, "une": true, "pour": true, "avec": true, "dans": true,
}

// Tokens lowercases s, splits on anything but letters and digits and drops
// short words and stopwords.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 3 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Rank scores chunks by query-token overlap with a small bonus for later
// turns, keeps those with any overlap and returns at most k.
func Rank(candidates []domain.Chunk, query string, k int) []domain.Chunk {
	if k <= 0 || len(candidates) == 0 {
		return []domain.Chunk{}
	}
	qTokens := uniq(Tokens(query))
	if len(qTokens) == 0 {
		return []domain.Chunk{}
	}

	n := float64(len(candidates))
	scored := make([]domain.Chunk, 0, len(candidates))
	for i, c := range candidates {
		body := setOf(Tokens(bodyText(c)))
		speaker := setOf(Tokens(c.Speaker))
		lexical := 0.0
		for _, q := range qTokens {
			switch {
			case body[q]:
				lexical++
			case speaker[q]:
				lexical += speakerWeight
			}
		}
		if lexical == 0 {
			continue
		}
		c.Score = lexical/float64(len(qTokens)) + orderWeight*float64(i+1)/n
		scored = append(scored, c)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Index < scored[j].Index
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

func bodyText(c domain.Chunk) string {
	prefix := c.Speaker + ": "
	return strings.TrimPrefix(c.Content, prefix)
}

func setOf(tokens []string) map[string]bool {
	m := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		m[t] = true
	}
	return m
}

func uniq(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
