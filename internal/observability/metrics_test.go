package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.JobStarted()
	m.JobFinished("COMPLETED")
	m.ObserveSection("SUCCESS", 1, time.Second)
	m.ObserveDelivery("section", true)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := New()
	m.JobStarted()
	m.ObserveSection("SUCCESS", 2, 3*time.Second)
	m.ObserveSection("FAILED", 3, 40*time.Second)
	m.ObserveDelivery("section", false)
	m.AddTermMappings("EXACT", 2)
	m.ObserveAPI("POST", "/api/encounters", 202, 10*time.Millisecond)

	if got := m.sections.Value("SUCCESS"); got != 1 {
		t.Fatalf("sections SUCCESS: want=1 got=%v", got)
	}
	if got := m.jobsInflight.Value(); got != 1 {
		t.Fatalf("inflight: want=1 got=%v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`notegen_sections_total{status="FAILED"} 1`,
		`notegen_section_attempts_bucket{status="SUCCESS",le="2"} 1`,
		`notegen_section_attempts_bucket{status="SUCCESS",le="1"} 0`,
		`notegen_deliveries_total{kind="section",result="failure"} 1`,
		`notegen_term_mappings_total{match_type="EXACT"} 2`,
		`notegen_api_requests_total{method="POST",route="/api/encounters",status="202"} 1`,
		"# TYPE notegen_jobs_inflight gauge",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("a=1, b = 2,bad,=x")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("headers: got=%v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty headers should be nil")
	}
}
