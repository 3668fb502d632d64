package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsAndHashes(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"first_name", "Jane",
		"doctor_id", "doc-1",
		"encounter_id", "enc-1",
		"dangling",
	})
	if len(out) != 7 {
		t.Fatalf("len: want=7 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("first_name: want=[REDACTED] got=%v", out[1])
	}
	hashed, _ := out[3].(string)
	if !strings.HasPrefix(hashed, "hash:") || len(hashed) != len("hash:")+12 {
		t.Fatalf("doctor_id: want hash:<12 hex> got=%q", hashed)
	}
	if out[5] != "enc-1" {
		t.Fatalf("encounter_id: want passthrough got=%v", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("dangling key: want kept got=%v", out[6])
	}
}

func TestSanitizeNestedMaps(t *testing.T) {
	v := sanitizeValue("patient", map[string]interface{}{
		"date_of_birth": "1970-01-01",
		"gender":        "F",
	})
	m, ok := v.(map[string]interface{})
	if !ok {
		t.Fatalf("want map got %T", v)
	}
	if m["date_of_birth"] != "[REDACTED]" {
		t.Fatalf("date_of_birth: want=[REDACTED] got=%v", m["date_of_birth"])
	}
	if m["gender"] != "F" {
		t.Fatalf("gender: want=F got=%v", m["gender"])
	}
}
