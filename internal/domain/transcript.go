package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TranscriptTurn is one validated utterance. LineNumber is the 0-based index
// of the source record and never changes once assigned.
type TranscriptTurn struct {
	LineNumber int    `json:"line_number"`
	Speaker    string `json:"speaker"`
	Text       string `json:"text"`
	TurnID     string `json:"turn_id"`
}

// RawTurn is a transcript record as received. The tagged form is
// {"id": "...", "speaker": "...", "text": "..."}. The legacy form
// {"id": "...", "<speaker>": "<text>"} is accepted only when exactly one
// non-reserved key is present; anything else is marked Invalid and dropped
// during normalization.
type RawTurn struct {
	ID      string `json:"id,omitempty"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`

	Invalid string `json:"-"`
}

var reservedTurnKeys = map[string]bool{
	"id":          true,
	"turn_id":     true,
	"line_number": true,
}

func (r *RawTurn) UnmarshalJSON(b []byte) error {
	*r = RawTurn{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		r.Invalid = "record is not an object"
		return nil
	}

	id, ok := scalarString(fields["id"])
	if !ok {
		id, ok = scalarString(fields["turn_id"])
	}
	if !ok {
		r.Invalid = "turn id is not a string or number"
		return nil
	}
	r.ID = id

	if rawSpeaker, explicit := fields["speaker"]; explicit {
		speaker, okS := scalarString(rawSpeaker)
		text, okT := scalarString(fields["text"])
		if !okS || !okT {
			r.Invalid = "speaker and text must be strings"
			return nil
		}
		r.Speaker, r.Text = speaker, text
		return nil
	}

	candidates := make([]string, 0, 1)
	for k := range fields {
		if !reservedTurnKeys[k] {
			candidates = append(candidates, k)
		}
	}
	switch len(candidates) {
	case 0:
		r.Invalid = "no speaker key"
		return nil
	case 1:
	default:
		sort.Strings(candidates)
		r.Invalid = fmt.Sprintf("ambiguous speaker keys %v", candidates)
		return nil
	}
	text, okT := scalarString(fields[candidates[0]])
	if !okT {
		r.Invalid = "utterance is not a string"
		return nil
	}
	r.Speaker, r.Text = candidates[0], text
	return nil
}

// scalarString accepts a missing value, a string or a number.
func scalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		return strings.TrimSpace(n.String()), true
	}
	return "", false
}

// Chunk is a retrievable unit derived from exactly one turn.
type Chunk struct {
	ChunkID     string  `json:"chunk_id"`
	EncounterID string  `json:"encounter_id"`
	Index       int     `json:"index"`
	LineNumbers []int   `json:"line_numbers"`
	Speaker     string  `json:"speaker"`
	Content     string  `json:"content"`
	Score       float64 `json:"score,omitempty"`
}
