package domain

import (
	"encoding/json"
	"testing"
)

func TestRawTurnUnmarshal(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    RawTurn
		invalid bool
	}{
		{"tagged", `{"id":"t1","speaker":"doctor","text":"Hello"}`, RawTurn{ID: "t1", Speaker: "doctor", Text: "Hello"}, false},
		{"legacy", `{"id":"t2","patient":"I have a cough"}`, RawTurn{ID: "t2", Speaker: "patient", Text: "I have a cough"}, false},
		{"legacy without id", `{"doctor":"Hello"}`, RawTurn{Speaker: "doctor", Text: "Hello"}, false},
		{"numeric id", `{"id":7,"speaker":"doctor","text":"x"}`, RawTurn{ID: "7", Speaker: "doctor", Text: "x"}, false},
		{"ambiguous", `{"id":"t3","doctor":"a","patient":"b"}`, RawTurn{}, true},
		{"no speaker", `{"id":"t4"}`, RawTurn{}, true},
		{"object id", `{"id":{"x":1},"doctor":"a"}`, RawTurn{}, true},
		{"not object", `"hello"`, RawTurn{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got RawTurn
			if err := json.Unmarshal([]byte(tc.in), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if tc.invalid {
				if got.Invalid == "" {
					t.Fatalf("want invalid record got=%+v", got)
				}
				return
			}
			if got.Invalid != "" {
				t.Fatalf("unexpected invalid: %s", got.Invalid)
			}
			if got.ID != tc.want.ID || got.Speaker != tc.want.Speaker || got.Text != tc.want.Text {
				t.Fatalf("want=%+v got=%+v", tc.want, got)
			}
		})
	}
}

func TestEncounterRequestDecodesMixedTurns(t *testing.T) {
	body := `{"encounterId":"e1","clinicId":"c1","encounterTranscript":[{"doctor":"Hi"},{"a":"1","b":"2"}],"sections":[{"id":"s1","name":"Subjective","prompt":"p"}]}`
	var req EncounterRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(req.Transcript) != 2 {
		t.Fatalf("turns: want=2 got=%d", len(req.Transcript))
	}
	if req.Transcript[1].Invalid == "" {
		t.Fatalf("second turn should be flagged invalid")
	}
}

func TestJobStatusTransitions(t *testing.T) {
	allowed := map[[2]JobStatus]bool{
		{JobQueued, JobProcessing}:    true,
		{JobProcessing, JobCompleted}: true,
		{JobProcessing, JobFailed}:    true,
	}
	all := []JobStatus{JobQueued, JobProcessing, JobCompleted, JobFailed}
	for _, from := range all {
		for _, to := range all {
			if got := from.CanTransitionTo(to); got != allowed[[2]JobStatus{from, to}] {
				t.Fatalf("%s->%s: want=%v got=%v", from, to, allowed[[2]JobStatus{from, to}], got)
			}
		}
	}
}
