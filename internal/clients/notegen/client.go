// Package notegen delivers generated sections and extracted patient data to
// the NoteGen backend.
package notegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/apierr"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/ctxutil"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/envutil"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

const userAgent = "NoteGen-AI-APIs/1.0"

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    strings.TrimSpace(envutil.String("NOTEGEN_API_BASE_URL", "")),
		Timeout:    envutil.Seconds("NOTEGEN_API_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries: envutil.Int("NOTEGEN_API_MAX_RETRIES", 3),
	}
}

// Delivery is one section result bound for the backend.
type Delivery struct {
	EncounterID string
	ClinicID    string
	JobID       string
	Result      domain.SectionResult
	LastSection bool
}

// Receipt reports how a delivery ended. Delivery never returns an error;
// failures are recorded here.
type Receipt struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Attempts   int    `json:"attempts"`
	Error      string `json:"error,omitempty"`
}

type SleepFunc func(ctx context.Context, d time.Duration) error

type Client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	sleep      SleepFunc
}

func NewFromEnv(log *logger.Logger) (*Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing NOTEGEN_API_BASE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Client{
		log:        log.With("client", "NoteGenClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sleep:      sleepTimer,
	}, nil
}

// WithSleep replaces the backoff sleeper.
func (c *Client) WithSleep(fn SleepFunc) *Client {
	if fn != nil {
		c.sleep = fn
	}
	return c
}

// --- wire types ---

type sectionPayload struct {
	SectionID    string        `json:"sectionId"`
	Content      string        `json:"content"`
	ErrorMessage string        `json:"errorMessage"`
	Status       string        `json:"status"`
	LastSection  bool          `json:"lastSection"`
	Metadata     *successMeta  `json:"metadata,omitempty"`
	Error        *failureBlock `json:"error,omitempty"`
}

type successMeta struct {
	AttemptCount        int     `json:"attempt_count"`
	ProcessingTime      float64 `json:"processing_time"`
	ConfidenceScore     float64 `json:"confidence_score"`
	LineReferencesCount int     `json:"line_references_count"`
	SnomedMappingsCount int     `json:"snomed_mappings_count"`
}

type failureBlock struct {
	Message        string  `json:"message"`
	Trace          string  `json:"trace"`
	AttemptCount   int     `json:"attempt_count"`
	ProcessingTime float64 `json:"processing_time"`
}

func buildSectionPayload(d Delivery) sectionPayload {
	r := d.Result
	p := sectionPayload{
		SectionID:   r.SectionID,
		Status:      string(r.Status),
		LastSection: d.LastSection,
	}
	if r.Succeeded() {
		p.Content = r.Content
		p.Metadata = &successMeta{
			AttemptCount:        r.AttemptCount,
			ProcessingTime:      r.ProcessingTime.Seconds(),
			ConfidenceScore:     r.ConfidenceScore,
			LineReferencesCount: len(r.LineReferences),
			SnomedMappingsCount: len(r.TermMappings),
		}
		return p
	}
	p.ErrorMessage = r.ErrorMessage
	p.Error = &failureBlock{
		Message:        r.ErrorMessage,
		Trace:          r.ErrorTrace,
		AttemptCount:   r.AttemptCount,
		ProcessingTime: r.ProcessingTime.Seconds(),
	}
	return p
}

// Deliver posts one section result to <base>/<encounter>/notes.
func (c *Client) Deliver(ctx context.Context, d Delivery) Receipt {
	path := "/" + url.PathEscape(d.EncounterID) + "/notes"
	c.log.Info("Delivering section",
		"encounter_id", d.EncounterID,
		"section_id", d.Result.SectionID,
		"status", string(d.Result.Status),
		"last_section", d.LastSection,
		"clinic_id", d.ClinicID,
	)
	rec := c.post(ctx, path, d.ClinicID, buildSectionPayload(d))
	if !rec.Success {
		c.log.Error("Section delivery failed",
			"encounter_id", d.EncounterID,
			"section_id", d.Result.SectionID,
			"attempts", rec.Attempts,
			"status_code", rec.StatusCode,
			"error", rec.Error,
		)
	}
	return rec
}

// SendPatientInfo posts extracted demographics to
// <base>/<encounter>/patient-extracted.
func (c *Client) SendPatientInfo(ctx context.Context, encounterID, clinicID string, info domain.PatientInfo) Receipt {
	path := "/" + url.PathEscape(encounterID) + "/patient-extracted"
	rec := c.post(ctx, path, clinicID, info)
	if !rec.Success {
		c.log.Warn("Patient info delivery failed", "encounter_id", encounterID, "error", rec.Error)
	}
	return rec
}

// post retries 5xx, timeouts and transport errors with 2^attempt second
// waits. A 4xx ends delivery at once.
func (c *Client) post(ctx context.Context, path, clinicID string, body any) Receipt {
	raw, err := json.Marshal(body)
	if err != nil {
		return Receipt{Error: fmt.Sprintf("encode payload: %v", err)}
	}

	var last error
	status := 0
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return Receipt{StatusCode: status, Attempts: attempt, Error: ctx.Err().Error()}
		}
		status, err = c.doOnce(ctx, path, clinicID, raw)
		if err == nil {
			return Receipt{Success: true, StatusCode: status, Attempts: attempt + 1}
		}
		last = err

		var ae *apierr.Error
		if errors.As(err, &ae) && ae.Terminal() {
			return Receipt{StatusCode: status, Attempts: attempt + 1, Error: err.Error()}
		}
		if attempt == c.cfg.MaxRetries-1 {
			break
		}

		wait := time.Duration(1<<attempt) * time.Second
		c.log.Warn("NoteGen request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", wait.String(),
			"timeout", isTimeout(err),
			"error", err.Error(),
		)
		if serr := c.sleep(ctx, wait); serr != nil {
			return Receipt{StatusCode: status, Attempts: attempt + 1, Error: serr.Error()}
		}
	}
	return Receipt{StatusCode: status, Attempts: c.cfg.MaxRetries, Error: last.Error()}
}

func (c *Client) doOnce(ctx context.Context, path, clinicID string, raw []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-clinic-id", clinicID)
	if td := ctxutil.GetTraceData(ctx); td != nil && td.TraceID != "" {
		req.Header.Set("X-Trace-Id", td.TraceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = "<empty body>"
		}
		return resp.StatusCode, apierr.New(resp.StatusCode, "notegen_http_error",
			fmt.Errorf("notegen http %d: %s", resp.StatusCode, msg))
	}
	return resp.StatusCode, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sleepTimer(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
