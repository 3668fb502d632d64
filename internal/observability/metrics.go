package observability

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/envutil"
)

// Metrics is a small Prometheus text exporter. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	apiRequests     *CounterVec
	apiLatency      *HistogramVec
	jobs            *CounterVec
	jobsInflight    *Gauge
	sections        *CounterVec
	sectionAttempts *HistogramVec
	sectionLatency  *HistogramVec
	deliveries      *CounterVec
	termMappings    *CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Init builds the process-wide metrics once.
func Init() *Metrics {
	initOnce.Do(func() { instance = New() })
	return instance
}

func Current() *Metrics { return instance }

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("notegen_api_requests_total", "HTTP requests.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec("notegen_api_request_seconds", "HTTP request latency.",
			[]string{"method", "route"}, nil),
		jobs:         NewCounterVec("notegen_jobs_total", "Jobs reaching a status.", []string{"status"}),
		jobsInflight: NewGauge("notegen_jobs_inflight", "Jobs currently processing."),
		sections:     NewCounterVec("notegen_sections_total", "Sections by terminal status.", []string{"status"}),
		sectionAttempts: NewHistogramVec("notegen_section_attempts", "Attempts spent per section.",
			[]string{"status"}, []float64{1, 2, 3, 5}),
		sectionLatency: NewHistogramVec("notegen_section_seconds", "Section processing time.",
			[]string{"status"}, []float64{1, 5, 10, 30, 60, 120}),
		deliveries:   NewCounterVec("notegen_deliveries_total", "Downstream deliveries.", []string{"kind", "result"}),
		termMappings: NewCounterVec("notegen_term_mappings_total", "Resolved term mappings.", []string{"match_type"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_ = m.WritePrometheus(w)
	})
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency,
		m.jobs, m.jobsInflight,
		m.sections, m.sectionAttempts, m.sectionLatency,
		m.deliveries, m.termMappings,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, fmt.Sprint(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.jobs.Inc("PROCESSING")
	m.jobsInflight.Add(1)
}

func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.jobs.Inc(status)
	m.jobsInflight.Add(-1)
}

func (m *Metrics) ObserveSection(status string, attempts int, dur time.Duration) {
	if m == nil {
		return
	}
	m.sections.Inc(status)
	m.sectionAttempts.Observe(float64(attempts), status)
	m.sectionLatency.Observe(dur.Seconds(), status)
}

func (m *Metrics) ObserveDelivery(kind string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.deliveries.Inc(kind, result)
}

func (m *Metrics) AddTermMappings(matchType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.termMappings.Add(float64(n), matchType)
}

// --- primitives ---

type CounterVec struct {
	name       string
	help       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]float64
}

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{name: name, help: help, labelNames: labels, values: map[string]float64{}}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

func (c *CounterVec) Add(v float64, values ...string) {
	lbl := labelString(c.labelNames, values)
	c.mu.Lock()
	c.values[lbl] += v
	c.mu.Unlock()
}

func (c *CounterVec) Value(values ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelString(c.labelNames, values)]
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if err := writeHeader(w, c.name, c.help, "counter"); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range sortedKeys(c.values) {
		if _, err := fmt.Fprintf(w, "%s%s %g\n", c.name, k, c.values[k]); err != nil {
			return err
		}
	}
	return nil
}

type Gauge struct {
	name string
	help string
	mu   sync.RWMutex
	val  float64
}

func NewGauge(name, help string) *Gauge { return &Gauge{name: name, help: help} }

func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.val += v
	g.mu.Unlock()
}

func (g *Gauge) Value() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.val
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if err := writeHeader(w, g.name, g.help, "gauge"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s %g\n", g.name, g.Value())
	return err
}

type HistogramVec struct {
	name       string
	help       string
	labelNames []string
	buckets    []float64
	mu         sync.RWMutex
	values     map[string]*histogram
}

type histogram struct {
	counts []uint64 // cumulative per bucket, last is +Inf
	sum    float64
	total  uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	}
	return &HistogramVec{name: name, help: help, labelNames: labels, buckets: buckets, values: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	lbl := labelString(h.labelNames, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	hist, ok := h.values[lbl]
	if !ok {
		hist = &histogram{counts: make([]uint64, len(h.buckets)+1)}
		h.values[lbl] = hist
	}
	hist.sum += v
	hist.total++
	for i, b := range h.buckets {
		if v <= b {
			hist.counts[i]++
		}
	}
	hist.counts[len(h.buckets)]++
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if err := writeHeader(w, h.name, h.help, "histogram"); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, k := range sortedKeys(h.values) {
		v := h.values[k]
		for i, b := range h.buckets {
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, fmt.Sprintf("%g", b)), v.counts[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, "+Inf"), v.counts[len(h.buckets)]); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s_sum%s %g\n%s_count%s %d\n", h.name, k, v.sum, h.name, k, v.total); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.Writer, name, help, kind string) error {
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, 0, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) {
			val = values[i]
		}
		parts = append(parts, name+`="`+escapeLabel(val)+`"`)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabel(v string) string { return labelEscaper.Replace(v) }

func withLe(labels string, le string) string {
	if labels == "" {
		return `{le="` + le + `"}`
	}
	return strings.TrimSuffix(labels, "}") + `,le="` + le + `"}`
}
