package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/envutil"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

const (
	DefaultRedisPrefix = "notegen:job:"
	DefaultRedisTTL    = 72 * time.Hour

	maxTransitionRetries = 8
)

// NewRedisClient connects to REDIS_ADDR and pings it.
func NewRedisClient(ctx context.Context) (*goredis.Client, error) {
	addr := strings.TrimSpace(envutil.String("REDIS_ADDR", ""))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// RedisStore keeps each job as a JSON value under prefix+jobID. Transitions
// use WATCH/MULTI so concurrent writers cannot skip a state.
type RedisStore struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(log *logger.Logger, rdb *goredis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{
		log:    log.With("service", "RedisJobStore"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisStore) key(jobID string) string { return s.prefix + jobID }

func (s *RedisStore) Create(ctx context.Context, job domain.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.key(job.JobID), raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis create job: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, job.JobID)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (domain.Job, error) {
	return s.read(ctx, s.rdb, jobID)
}

type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, g getter, jobID string) (domain.Job, error) {
	raw, err := g.Get(ctx, s.key(jobID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Job{}, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("redis get job: %w", err)
	}
	var job domain.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return domain.Job{}, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return job, nil
}

func (s *RedisStore) Transition(ctx context.Context, jobID string, to domain.JobStatus, patch domain.JobPatch) (domain.Job, error) {
	key := s.key(jobID)
	var out domain.Job

	txf := func(tx *goredis.Tx) error {
		job, err := s.read(ctx, tx, jobID)
		if err != nil {
			return err
		}
		next, err := apply(job, to, patch, s.now())
		if err != nil {
			out = job
			return err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, raw, s.ttl)
			return nil
		})
		if err == nil {
			out = next
		}
		return err
	}

	for i := 0; i < maxTransitionRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return out, err
	}
	s.log.Warn("Job transition lost optimistic race", "job_id", jobID, "to", string(to))
	return out, fmt.Errorf("redis transition job %s: too much contention", jobID)
}
