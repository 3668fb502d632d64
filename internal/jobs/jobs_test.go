package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"pgregory.net/rapid"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

var allStatuses = []domain.JobStatus{domain.JobQueued, domain.JobProcessing, domain.JobCompleted, domain.JobFailed}

func rank(s domain.JobStatus) int {
	switch s {
	case domain.JobQueued:
		return 0
	case domain.JobProcessing:
		return 1
	default:
		return 2
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{"memory": NewMemoryStore()}
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		return out
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Logf("redis unavailable: %v", err)
		return out
	}
	t.Cleanup(func() { _ = rdb.Close() })
	prefix := fmt.Sprintf("notegen:test:%d:", time.Now().UnixNano())
	out["redis"] = NewRedisStore(logger.Nop(), rdb, prefix, time.Minute)
	return out
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			job := NewJob("job-1", "enc-1", 3, time.Now())
			if err := s.Create(ctx, job); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := s.Create(ctx, job); !errors.Is(err, ErrAlreadyExists) {
				t.Fatalf("duplicate Create: want ErrAlreadyExists got=%v", err)
			}
			if _, err := s.Transition(ctx, "job-1", domain.JobCompleted, domain.JobPatch{}); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("QUEUED->COMPLETED: want ErrInvalidTransition got=%v", err)
			}
			if _, err := s.Transition(ctx, "job-1", domain.JobFailed, domain.JobPatch{Error: "boom"}); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("QUEUED->FAILED: want ErrInvalidTransition got=%v", err)
			}
			if queued, _ := s.Get(ctx, "job-1"); queued.Status != domain.JobQueued || queued.Error != "" {
				t.Fatalf("rejected transition changed the job: got=%+v", queued)
			}
			if _, err := s.Transition(ctx, "job-1", domain.JobProcessing, domain.JobPatch{}); err != nil {
				t.Fatalf("QUEUED->PROCESSING: %v", err)
			}
			got, err := s.Transition(ctx, "job-1", domain.JobCompleted, domain.JobPatch{SectionsSucceeded: 2, SectionsFailed: 1})
			if err != nil {
				t.Fatalf("PROCESSING->COMPLETED: %v", err)
			}
			if got.Status != domain.JobCompleted || got.FinishedAt == nil || got.SectionsSucceeded != 2 || got.SectionsFailed != 1 {
				t.Fatalf("completed job: got=%+v", got)
			}
			if _, err := s.Transition(ctx, "job-1", domain.JobProcessing, domain.JobPatch{}); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("terminal job moved: got=%v", err)
			}
			tracked, err := NewTracker(s).GetJobStatus(ctx, "job-1")
			if err != nil || tracked.Status != domain.JobCompleted || tracked.EncounterID != "enc-1" {
				t.Fatalf("tracker: got=%+v err=%v", tracked, err)
			}
			if _, err := NewTracker(s).GetJobStatus(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("missing: want ErrNotFound got=%v", err)
			}
		})
	}
}

func TestConcurrentTerminalTransitionsPickOneWinner(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_ = s.Create(ctx, NewJob("race", "enc", 1, time.Now()))
			if _, err := s.Transition(ctx, "race", domain.JobProcessing, domain.JobPatch{}); err != nil {
				t.Fatalf("PROCESSING: %v", err)
			}
			var wg sync.WaitGroup
			var mu sync.Mutex
			wins := 0
			for i := 0; i < 16; i++ {
				to := domain.JobCompleted
				if i%2 == 1 {
					to = domain.JobFailed
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.Transition(ctx, "race", to, domain.JobPatch{}); err == nil {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			if wins != 1 {
				t.Fatalf("terminal winners: want=1 got=%d", wins)
			}
		})
	}
}

func TestStatusNeverRegresses(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		s := NewMemoryStore()
		_ = s.Create(ctx, NewJob("j", "e", 1, time.Now()))

		seen := []domain.JobStatus{domain.JobQueued}
		steps := rapid.SliceOfN(rapid.SampledFrom(allStatuses), 0, 12).Draw(rt, "steps")
		for _, to := range steps {
			before, _ := s.Get(ctx, "j")
			after, err := s.Transition(ctx, "j", to, domain.JobPatch{})
			if err != nil {
				if !errors.Is(err, ErrInvalidTransition) {
					rt.Fatalf("unexpected error: %v", err)
				}
				if cur, _ := s.Get(ctx, "j"); cur.Status != before.Status {
					rt.Fatalf("rejected transition changed state: %s -> %s", before.Status, cur.Status)
				}
				continue
			}
			seen = append(seen, after.Status)
		}
		for i := 1; i < len(seen); i++ {
			if rank(seen[i]) <= rank(seen[i-1]) {
				rt.Fatalf("status regressed or repeated: %v", seen)
			}
		}
	})
}
