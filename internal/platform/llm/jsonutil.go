package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("no JSON value in model output")

// ExtractJSON strips markdown fences and surrounding prose, returning the
// outermost JSON object or array found in the text.
func ExtractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	s = stripFences(s)
	if s == "" {
		return "", ErrNoJSON
	}
	if json.Valid([]byte(s)) {
		return s, nil
	}
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(s, pair[0])
		end := strings.LastIndexByte(s, pair[1])
		if start >= 0 && end > start {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}
	return "", ErrNoJSON
}

// DecodeModelJSON extracts JSON from model output and unmarshals it into out.
func DecodeModelJSON(text string, out any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
