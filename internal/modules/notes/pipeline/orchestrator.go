// Package pipeline runs encounter jobs: chunk and store the transcript,
// resolve terms once, then generate and deliver sections one at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/clients/notegen"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/jobs"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/generation"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/retrieval"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/retry"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/transcript"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/observability"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/ctxutil"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

const (
	DefaultRetrievalK  = 15
	DefaultConcurrency = 4

	priorSectionSeparator = "\n---\n"
)

type TermExtractor interface {
	Extract(ctx context.Context, transcriptText, language string) ([]string, error)
}

type TermResolver interface {
	ResolveAll(ctx context.Context, terms []string, language string) []domain.TermMapping
}

type SectionGenerator interface {
	Generate(ctx context.Context, in generation.Input) generation.Outcome
}

type PatientExtractor interface {
	Extract(ctx context.Context, transcriptText string) (domain.PatientInfo, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, d notegen.Delivery) notegen.Receipt
	SendPatientInfo(ctx context.Context, encounterID, clinicID string, info domain.PatientInfo) notegen.Receipt
}

type Config struct {
	RetrievalK  int
	Concurrency int
	Retry       retry.Policy
}

// Deps are the collaborators of an Orchestrator. Patient, Sleeper and
// Metrics are optional.
type Deps struct {
	Log       *logger.Logger
	Chunks    retrieval.ChunkStore
	Jobs      jobs.Store
	Terms     TermExtractor
	Resolver  TermResolver
	Generator SectionGenerator
	Patient   PatientExtractor
	Deliverer Deliverer
	Sleeper   retry.Sleeper
	Metrics   *observability.Metrics
}

type Orchestrator struct {
	log       *logger.Logger
	cfg       Config
	chunks    retrieval.ChunkStore
	retriever *retrieval.Retriever
	jobs      jobs.Store
	terms     TermExtractor
	resolver  TermResolver
	generator SectionGenerator
	patient   PatientExtractor
	deliverer Deliverer
	retry     *retry.Controller
	metrics   *observability.Metrics

	sem   *semaphore.Weighted
	wg    sync.WaitGroup
	newID func() string
	now   func() time.Time
}

func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Log == nil:
		return nil, fmt.Errorf("logger required")
	case deps.Chunks == nil:
		return nil, fmt.Errorf("chunk store required")
	case deps.Jobs == nil:
		return nil, fmt.Errorf("job store required")
	case deps.Terms == nil || deps.Resolver == nil:
		return nil, fmt.Errorf("term extractor and resolver required")
	case deps.Generator == nil:
		return nil, fmt.Errorf("section generator required")
	case deps.Deliverer == nil:
		return nil, fmt.Errorf("deliverer required")
	}
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = DefaultRetrievalK
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Retry.MaxAttempts <= 0 || cfg.Retry.Backoff == nil {
		cfg.Retry = retry.DefaultPolicy()
	}
	log := deps.Log.With("service", "EncounterOrchestrator")
	return &Orchestrator{
		log:       log,
		cfg:       cfg,
		chunks:    deps.Chunks,
		retriever: retrieval.NewRetriever(deps.Log, deps.Chunks),
		jobs:      deps.Jobs,
		terms:     deps.Terms,
		resolver:  deps.Resolver,
		generator: deps.Generator,
		patient:   deps.Patient,
		deliverer: deps.Deliverer,
		retry:     retry.NewController(deps.Log, cfg.Retry, deps.Sleeper),
		metrics:   deps.Metrics,
		sem:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
	}, nil
}

// Summary is what one processed job produced.
type Summary struct {
	Job     domain.Job
	Results []domain.SectionResult
}

// Submit validates req, records a QUEUED job and processes it in the
// background. The request context only scopes validation and job creation.
func (o *Orchestrator) Submit(ctx context.Context, req domain.EncounterRequest) (domain.Job, error) {
	job, req, turns, err := o.enqueue(ctx, req)
	if err != nil {
		return domain.Job{}, err
	}

	bg := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.sem.Acquire(bg, 1); err != nil {
			o.log.Error("Worker slot unavailable", "job_id", job.JobID, "error", err)
			return
		}
		defer o.sem.Release(1)
		_, _ = o.process(bg, job, req, turns)
	}()
	return job, nil
}

// Run validates req and processes it on the calling goroutine.
func (o *Orchestrator) Run(ctx context.Context, req domain.EncounterRequest) (Summary, error) {
	job, req, turns, err := o.enqueue(ctx, req)
	if err != nil {
		return Summary{}, err
	}
	return o.process(ctx, job, req, turns)
}

// Wait blocks until every submitted job has finished.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// enqueue returns req with unusable sections removed; everything after it
// sees only the surviving sections.
func (o *Orchestrator) enqueue(ctx context.Context, req domain.EncounterRequest) (domain.Job, domain.EncounterRequest, []domain.TranscriptTurn, error) {
	if err := Validate(req); err != nil {
		return domain.Job{}, req, nil, err
	}
	log := o.log.With("encounter_id", req.EncounterID)
	requested := len(req.Sections)
	req.Sections = UsableSections(log, req.Sections)
	if len(req.Sections) == 0 {
		return domain.Job{}, req, nil, fmt.Errorf("%w: encounter %s", ErrNoUsableSections, req.EncounterID)
	}
	turns := transcript.Normalize(o.log, req.Transcript)
	if len(turns) == 0 {
		return domain.Job{}, req, nil, fmt.Errorf("%w: encounter %s", ErrNoUsableTurns, req.EncounterID)
	}
	job := jobs.NewJob(o.newID(), req.EncounterID, len(req.Sections), o.now())
	if err := o.jobs.Create(ctx, job); err != nil {
		return domain.Job{}, req, nil, fmt.Errorf("create job: %w", err)
	}
	log.Info("Job queued",
		"job_id", job.JobID,
		"sections", len(req.Sections),
		"sections_dropped", requested-len(req.Sections),
	)
	return job, req, turns, nil
}

func (o *Orchestrator) process(ctx context.Context, job domain.Job, req domain.EncounterRequest, turns []domain.TranscriptTurn) (sum Summary, err error) {
	td := &ctxutil.TraceData{JobID: job.JobID, EncounterID: req.EncounterID}
	if parent := ctxutil.GetTraceData(ctx); parent != nil {
		td.TraceID, td.RequestID = parent.TraceID, parent.RequestID
	}
	ctx = ctxutil.WithTraceData(ctx, td)
	ctx, span := observability.Tracer().Start(ctx, "notegen.job")
	span.SetAttributes(
		attribute.String("job.id", job.JobID),
		attribute.Int("job.sections", len(req.Sections)),
	)
	defer span.End()
	log := o.log.With(ctxutil.LogFields(ctx)...)

	started, err := o.jobs.Transition(ctx, job.JobID, domain.JobProcessing, domain.JobPatch{})
	if err != nil {
		// The job stays QUEUED; only a PROCESSING job may fail.
		log.Error("Job could not start; left QUEUED", "error", err)
		return Summary{Job: job}, fmt.Errorf("start job: %w", err)
	}
	job = started
	o.metrics.JobStarted()

	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("job panicked: %v", r)
			sum.Job = o.finish(ctx, log, job.JobID, domain.JobFailed, domain.JobPatch{Error: err.Error()})
		}
	}()

	results, runErr := o.run(ctx, log, req, turns)
	sum.Results = results
	patch := countResults(results)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		patch.Error = runErr.Error()
		sum.Job = o.finish(ctx, log, job.JobID, domain.JobFailed, patch)
		return sum, runErr
	}
	sum.Job = o.finish(ctx, log, job.JobID, domain.JobCompleted, patch)
	return sum, nil
}

func (o *Orchestrator) finish(ctx context.Context, log *logger.Logger, jobID string, to domain.JobStatus, patch domain.JobPatch) domain.Job {
	job, err := o.jobs.Transition(ctx, jobID, to, patch)
	if err != nil {
		log.Error("Job status update failed", "to", string(to), "error", err)
	}
	o.metrics.JobFinished(string(to))
	log.Info("Job finished",
		"status", string(to),
		"sections_succeeded", patch.SectionsSucceeded,
		"sections_failed", patch.SectionsFailed,
		"error", patch.Error,
	)
	return job
}

func countResults(results []domain.SectionResult) domain.JobPatch {
	var p domain.JobPatch
	for _, r := range results {
		if r.Succeeded() {
			p.SectionsSucceeded++
		} else {
			p.SectionsFailed++
		}
	}
	return p
}

// run is the job body. An error means the job fails; section failures are
// results, not errors.
func (o *Orchestrator) run(ctx context.Context, log *logger.Logger, req domain.EncounterRequest, turns []domain.TranscriptTurn) ([]domain.SectionResult, error) {
	language := domain.NormalizeLanguage(req.Language)

	chunks := transcript.Chunk(log, req.EncounterID, turns)
	if err := o.chunks.StoreChunks(ctx, req.EncounterID, chunks); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	text := transcript.Format(turns)
	if req.PatientInfo {
		o.sendPatientInfo(ctx, log, req, text)
	}

	extracted, err := o.terms.Extract(ctx, text, language)
	if err != nil {
		return nil, err
	}
	mappings := o.resolver.ResolveAll(ctx, extracted, language)
	for mt, n := range countByMatchType(mappings) {
		o.metrics.AddTermMappings(string(mt), n)
	}

	results := make([]domain.SectionResult, 0, len(req.Sections))
	var prior []string
	for i, section := range req.Sections {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("job cancelled before section %s: %w", section.ID, err)
		}
		res, err := o.runSection(ctx, log, req, section, language, turns, mappings, strings.Join(prior, priorSectionSeparator))
		if err != nil {
			return results, err
		}
		results = append(results, res)
		o.metrics.ObserveSection(string(res.Status), res.AttemptCount, res.ProcessingTime)

		rec := o.deliverer.Deliver(ctx, notegen.Delivery{
			EncounterID: req.EncounterID,
			ClinicID:    req.ClinicID,
			JobID:       ctxutil.GetTraceData(ctx).JobID,
			Result:      res,
			LastSection: i == len(req.Sections)-1,
		})
		o.metrics.ObserveDelivery("section", rec.Success)

		if !res.Succeeded() {
			log.Warn("Section failed; continuing", "section_id", section.ID, "attempts", res.AttemptCount, "error", res.ErrorMessage)
			continue
		}
		prior = append(prior, fmt.Sprintf("Section: %s\nContent: %s", section.Name, res.Content))
	}
	return results, nil
}

func (o *Orchestrator) runSection(
	ctx context.Context,
	log *logger.Logger,
	req domain.EncounterRequest,
	section domain.SectionRequest,
	language string,
	turns []domain.TranscriptTurn,
	mappings []domain.TermMapping,
	prior string,
) (domain.SectionResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "notegen.section")
	span.SetAttributes(attribute.String("section.id", section.ID), attribute.String("section.name", section.Name))
	defer span.End()

	found, err := o.retriever.Retrieve(ctx, req.EncounterID, retrieval.BuildQuery(section), o.cfg.RetrievalK)
	if errors.Is(err, retrieval.ErrIsolationViolation) || errors.Is(err, retrieval.ErrScopeRequired) {
		return domain.SectionResult{}, err
	}
	if err != nil {
		log.Warn("Context retrieval failed; generating from transcript only", "section_id", section.ID, "error", err)
		found = nil
	}

	in := generation.Input{
		Section:       section,
		Language:      language,
		SystemPrompt:  req.SystemPrompt,
		ContextText:   retrieval.ContextText(found),
		TermMappings:  mappings,
		Preferences:   req.DoctorPreferences,
		PriorSections: prior,
		Transcript:    turns,
	}
	res := o.retry.Run(ctx, section, func(ctx context.Context, n int) generation.Outcome {
		return o.generator.Generate(ctx, in)
	})
	res.Language = language
	res.TermMappings = mappings
	if res.TermMappings == nil {
		res.TermMappings = []domain.TermMapping{}
	}
	if !res.Succeeded() {
		span.SetStatus(codes.Error, res.ErrorMessage)
	}
	span.SetAttributes(attribute.Int("section.attempts", res.AttemptCount), attribute.String("section.status", string(res.Status)))
	return res, nil
}

func (o *Orchestrator) sendPatientInfo(ctx context.Context, log *logger.Logger, req domain.EncounterRequest, text string) {
	if o.patient == nil {
		log.Debug("Patient info requested but no extractor configured")
		return
	}
	info, err := o.patient.Extract(ctx, text)
	if err != nil {
		log.Warn("Patient info extraction failed", "error", err)
		return
	}
	if info.Empty() {
		log.Info("No patient info stated in encounter")
		return
	}
	rec := o.deliverer.SendPatientInfo(ctx, req.EncounterID, req.ClinicID, info)
	o.metrics.ObserveDelivery("patient_info", rec.Success)
}

func countByMatchType(ms []domain.TermMapping) map[domain.MatchType]int {
	out := map[domain.MatchType]int{}
	for _, m := range ms {
		out[m.MatchType]++
	}
	return out
}
