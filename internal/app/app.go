package app

import (
	"context"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/clients/notegen"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/data/chunks"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/data/db"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/data/graph"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/data/vocab"
	httpserver "github.com/KhalidKhader/NoteGenAIAPIs/internal/http"
	httpH "github.com/KhalidKhader/NoteGenAIAPIs/internal/http/handlers"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/jobs"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/generation"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/patient"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/pipeline"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/retrieval"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/retry"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/terms"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/observability"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/llm"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/neo4jdb"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/openai"
)

const (
	snomedExactLimit    = 5
	snomedContainsLimit = 10
)

type App struct {
	Log          *logger.Logger
	Cfg          Config
	Orchestrator *pipeline.Orchestrator
	Jobs         *jobs.Tracker
	Server       *httpserver.Server
	Metrics      *observability.Metrics

	closers      []func(context.Context) error
	otelShutdown func(context.Context) error
}

// Options override pieces of the default wiring.
type Options struct {
	// Backend replaces the OpenAI client.
	Backend llm.Backend
	// Deliverer replaces the NoteGen backend client.
	Deliverer pipeline.Deliverer
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	if cfg.MetricsEnabled {
		a.Metrics = observability.Init()
	}

	pingers := map[string]httpH.Pinger{}

	chunkStore, err := a.buildChunkStore(pingers)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	jobStore, err := a.buildJobStore(ctx, pingers)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	vocabulary, err := a.buildVocabulary(ctx, pingers)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	backend := opts.Backend
	if backend == nil {
		client, err := openai.New(log, openai.ConfigFromEnv())
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("init openai: %w", err)
		}
		backend = client
	}

	deliverer := opts.Deliverer
	if deliverer == nil {
		deliverer, err = buildDeliverer(log)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	orch, err := pipeline.New(pipeline.Config{
		RetrievalK:  cfg.RetrievalK,
		Concurrency: cfg.WorkerConcurrency,
		Retry:       retry.NewPolicy(cfg.SectionMaxAttempts, cfg.SectionMaxBackoff),
	}, pipeline.Deps{
		Log:       log,
		Chunks:    chunkStore,
		Jobs:      jobStore,
		Terms:     terms.NewExtractor(log, backend),
		Resolver:  terms.NewResolver(log, vocabulary, cfg.TermResolveConcurrency),
		Generator: generation.NewGenerator(log, backend),
		Patient:   patient.NewExtractor(log, backend),
		Deliverer: deliverer,
		Metrics:   a.Metrics,
	})
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}
	a.Orchestrator = orch
	a.Jobs = jobs.NewTracker(jobStore)

	a.Server = httpserver.NewServer(httpserver.RouterConfig{
		Log:              log,
		ServiceName:      cfg.ServiceName,
		CORSOrigins:      cfg.CORSOrigins,
		Metrics:          a.Metrics,
		EncounterHandler: httpH.NewEncounterHandler(orch),
		JobHandler:       httpH.NewJobHandler(a.Jobs),
		HealthHandler:    httpH.NewHealthHandler(pingers),
	})
	return a, nil
}

type chunkStore interface {
	retrieval.ChunkStore
	httpH.Pinger
}

func (a *App) buildChunkStore(pingers map[string]httpH.Pinger) (retrieval.ChunkStore, error) {
	var store chunkStore
	switch a.Cfg.ChunkStoreDriver {
	case StorePostgres, StoreSQLite:
		gdb, err := db.Open(a.Log, db.Config{
			Driver:     a.Cfg.ChunkStoreDriver,
			DSN:        a.Cfg.PostgresDSN,
			SQLitePath: a.Cfg.SQLitePath,
		})
		if err != nil {
			return nil, fmt.Errorf("open chunk database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		store = chunks.NewGormStore(gdb, a.Log)
	default:
		store = chunks.NewMemoryStore()
	}
	pingers["chunks"] = store
	a.Log.Info("Chunk store ready", "driver", a.Cfg.ChunkStoreDriver)
	return store, nil
}

func (a *App) buildJobStore(ctx context.Context, pingers map[string]httpH.Pinger) (jobs.Store, error) {
	if a.Cfg.JobStore != StoreRedis {
		a.Log.Info("Job store ready", "backend", StoreMemory)
		return jobs.NewMemoryStore(), nil
	}
	rdb, err := jobs.NewRedisClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	pingers["redis"] = redisPinger{rdb}
	a.Log.Info("Job store ready", "backend", StoreRedis, "prefix", a.Cfg.RedisJobPrefix)
	return jobs.NewRedisStore(a.Log, rdb, a.Cfg.RedisJobPrefix, a.Cfg.RedisJobTTL), nil
}

func (a *App) buildVocabulary(ctx context.Context, pingers map[string]httpH.Pinger) (terms.Vocabulary, error) {
	if a.Cfg.VocabBackend != StoreMemory {
		client, err := neo4jdb.NewFromEnv(a.Log)
		if err != nil {
			return nil, fmt.Errorf("connect neo4j: %w", err)
		}
		if client != nil {
			a.closers = append(a.closers, client.Close)
			pingers["neo4j"] = client
			v := graph.NewSnomedVocabulary(client, a.Log, snomedExactLimit, snomedContainsLimit)
			v.EnsureIndexes(ctx)
			a.Log.Info("Vocabulary ready", "backend", VocabNeo4j)
			return v, nil
		}
		if a.Cfg.VocabBackend == VocabNeo4j {
			return nil, fmt.Errorf("VOCAB_BACKEND=neo4j but NEO4J_URI is unset")
		}
	}
	m, err := vocab.Load()
	if err != nil {
		return nil, fmt.Errorf("load seed vocabulary: %w", err)
	}
	a.Log.Info("Vocabulary ready", "backend", StoreMemory, "descriptions", m.Len())
	return m, nil
}

// buildDeliverer falls back to JSON lines on stdout when no backend URL
// is configured.
func buildDeliverer(log *logger.Logger) (pipeline.Deliverer, error) {
	cfg := notegen.ConfigFromEnv()
	if cfg.BaseURL == "" {
		log.Warn("NOTEGEN_API_BASE_URL unset; writing section results to stdout")
		return notegen.NewWriterDeliverer(os.Stdout), nil
	}
	client, err := notegen.New(log, cfg)
	if err != nil {
		return nil, fmt.Errorf("init notegen client: %w", err)
	}
	return client, nil
}

type redisPinger struct{ rdb *goredis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

// Run serves HTTP until ctx is done, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	addr := ":" + a.Cfg.Port
	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("Server listening", "addr", addr)
		errCh <- a.Server.Run(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Log.Warn("HTTP shutdown failed", "error", err)
	}
	a.Log.Info("Waiting for in-flight jobs")
	a.Orchestrator.Wait()
	return nil
}

func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.Log.Warn("Close failed", "error", err)
		}
	}
	a.closers = nil
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
