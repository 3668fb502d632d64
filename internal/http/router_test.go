package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	httpH "github.com/KhalidKhader/NoteGenAIAPIs/internal/http/handlers"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/http/response"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/jobs"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/pipeline"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/observability"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

type fakeSubmitter struct {
	err error
	got domain.EncounterRequest
}

func (f *fakeSubmitter) Submit(ctx context.Context, req domain.EncounterRequest) (domain.Job, error) {
	f.got = req
	if f.err != nil {
		return domain.Job{}, f.err
	}
	return jobs.NewJob("job-1", req.EncounterID, len(req.Sections), time.Now()), nil
}

type downPinger struct{}

func (downPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newTestRouter(sub *fakeSubmitter, store jobs.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		Log:              logger.Nop(),
		Metrics:          observability.New(),
		EncounterHandler: httpH.NewEncounterHandler(sub),
		JobHandler:       httpH.NewJobHandler(jobs.NewTracker(store)),
		HealthHandler:    httpH.NewHealthHandler(map[string]httpH.Pinger{"neo4j": downPinger{}}),
	})
}

const encounterBody = `{
	"encounterId": "enc-1",
	"clinicId": "clinic-1",
	"language": "fr",
	"encounterTranscript": [{"doctor": "Bonjour"}, {"speaker": "patient", "text": "Je tousse", "id": 7}],
	"sections": [{"id": "s1", "name": "Subjectif", "prompt": "Résumer", "templateId": "t"}],
	"doctor_preferences": {"hypertension": "HTA"},
	"patientInfo": true
}`

func TestSubmitEncounter(t *testing.T) {
	sub := &fakeSubmitter{}
	r := newTestRouter(sub, jobs.NewMemoryStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/encounters", bytes.NewBufferString(encounterBody)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusAccepted, rec.Code, rec.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["job_id"] != "job-1" || resp["status"] != "QUEUED" {
		t.Fatalf("response: got=%v", resp)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/jobs/job-1" {
		t.Fatalf("location: want=/api/jobs/job-1 got=%q", loc)
	}
	if len(sub.got.Transcript) != 2 || sub.got.Transcript[1].ID != "7" || sub.got.Transcript[0].Speaker != "doctor" {
		t.Fatalf("transcript decode: got=%+v", sub.got.Transcript)
	}
	if !sub.got.PatientInfo || sub.got.DoctorPreferences["hypertension"] != "HTA" {
		t.Fatalf("request decode: got=%+v", sub.got)
	}
}

func TestSubmitEncounterErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   response.Code
	}{
		{"bad json", `{`, nil, http.StatusBadRequest, response.CodeInvalidJSON},
		{"invalid", encounterBody, fmt.Errorf("%w: clinicId required", pipeline.ErrInvalidRequest), http.StatusBadRequest, response.CodeInvalidRequest},
		{"no turns", encounterBody, pipeline.ErrNoUsableTurns, http.StatusUnprocessableEntity, response.CodeNoUsableTurns},
		{"no sections", encounterBody, pipeline.ErrNoUsableSections, http.StatusUnprocessableEntity, response.CodeNoUsableSections},
		{"store down", encounterBody, errors.New("redis down"), http.StatusInternalServerError, response.CodeSubmitFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&fakeSubmitter{err: tc.err}, jobs.NewMemoryStore())
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/encounters", bytes.NewBufferString(tc.body)))
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d body=%s", tc.status, rec.Code, rec.Body.String())
			}
			var env response.ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || env.Error.Message == "" {
				t.Fatalf("error envelope: got=%s", rec.Body.String())
			}
			if env.Error.Code != tc.code {
				t.Fatalf("code: want=%s got=%s", tc.code, env.Error.Code)
			}
			if env.Error.TraceID == "" || env.Error.TraceID != rec.Header().Get("X-Trace-Id") {
				t.Fatalf("trace id: body=%q header=%q", env.Error.TraceID, rec.Header().Get("X-Trace-Id"))
			}
		})
	}
}

func TestGetJob(t *testing.T) {
	store := jobs.NewMemoryStore()
	_ = store.Create(context.Background(), jobs.NewJob("job-9", "enc-9", 2, time.Now()))
	r := newTestRouter(&fakeSubmitter{}, store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job-9", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	var job domain.Job
	_ = json.Unmarshal(rec.Body.Bytes(), &job)
	if job.JobID != "job-9" || job.Status != domain.JobQueued || job.SectionsTotal != 2 {
		t.Fatalf("job: got=%+v", job)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing job: want=404 got=%d", rec.Code)
	}
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || env.Error.Code != response.CodeJobNotFound {
		t.Fatalf("missing job envelope: got=%s", rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(&fakeSubmitter{}, jobs.NewMemoryStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: got=%d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: want=503 got=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("notegen_api_requests_total")) {
		t.Fatalf("metrics: got=%d", rec.Code)
	}
}
