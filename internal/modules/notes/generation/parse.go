package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/transcript"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/llm"
)

var ErrMissingContent = errors.New("noteContent missing or not a string")

// parsed is the section payload after tolerant decoding. References are not
// yet validated against the transcript.
type parsed struct {
	Content    string
	References []domain.LineReference
	Discarded  int
}

// parseSection decodes a section payload. Output that is a JSON array uses
// its last object. References may be bare integers (legacy) or objects with
// line_number, start_char, end_char and text; other entries are discarded.
func parseSection(text string, idx transcript.Index) (parsed, error) {
	raw, err := llm.ExtractJSON(text)
	if err != nil {
		return parsed{}, err
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return parsed{}, err
	}

	obj, ok := v.(map[string]any)
	if list, isList := v.([]any); isList {
		for i := len(list) - 1; i >= 0; i-- {
			if m, isMap := list[i].(map[string]any); isMap {
				obj, ok = m, true
				break
			}
		}
	}
	if !ok {
		return parsed{}, fmt.Errorf("expected a JSON object, got %T", v)
	}

	content, ok := obj["noteContent"].(string)
	if !ok {
		return parsed{}, ErrMissingContent
	}
	out := parsed{Content: content}

	refs, _ := obj["lineReferences"].([]any)
	for _, r := range refs {
		ref, ok := decodeReference(r, idx)
		if !ok {
			out.Discarded++
			continue
		}
		out.References = append(out.References, ref)
	}
	return out, nil
}

func decodeReference(r any, idx transcript.Index) (domain.LineReference, bool) {
	switch v := r.(type) {
	case float64:
		n, ok := asInt(v)
		if !ok {
			return domain.LineReference{}, false
		}
		turn, found := idx[n]
		if !found {
			// Left for validation to drop; there is no text to rehydrate.
			return domain.LineReference{LineNumber: n}, true
		}
		return domain.LineReference{
			LineNumber: n,
			StartChar:  0,
			EndChar:    len(turn.Text),
			Text:       turn.Text,
		}, true
	case map[string]any:
		line, ok1 := intField(v, "line_number")
		start, ok2 := intField(v, "start_char")
		end, ok3 := intField(v, "end_char")
		text, ok4 := v["text"].(string)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return domain.LineReference{}, false
		}
		return domain.LineReference{LineNumber: line, StartChar: start, EndChar: end, Text: text}, true
	default:
		return domain.LineReference{}, false
	}
}

func intField(m map[string]any, key string) (int, bool) {
	f, ok := m[key].(float64)
	if !ok {
		return 0, false
	}
	return asInt(f)
}

// asInt accepts integral values within the int32 range, which covers any
// line number or character offset.
func asInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// ValidateReferences keeps references that point at an existing turn and
// have 0 <= start_char <= end_char. Speaker is filled from the turn.
func ValidateReferences(refs []domain.LineReference, idx transcript.Index) []domain.LineReference {
	out := make([]domain.LineReference, 0, len(refs))
	for _, r := range refs {
		turn, ok := idx[r.LineNumber]
		if !ok || r.LineNumber < 0 {
			continue
		}
		if r.StartChar < 0 || r.StartChar > r.EndChar {
			continue
		}
		r.Speaker = turn.Speaker
		out = append(out, r)
	}
	return out
}
