// Package retry bounds the attempts spent on one section and turns the
// last attempt into a terminal SectionResult.
package retry

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/modules/notes/generation"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/platform/logger"
)

const (
	DefaultMaxAttempts = 3
	DefaultMaxBackoff  = 10 * time.Second
)

type Policy struct {
	MaxAttempts int
	// Backoff returns the wait after a failed attempt (1-based).
	Backoff func(attempt int) time.Duration
}

func DefaultPolicy() Policy {
	return NewPolicy(DefaultMaxAttempts, DefaultMaxBackoff)
}

// NewPolicy waits min(2^(attempt-1) s, maxBackoff) between attempts.
func NewPolicy(maxAttempts int, maxBackoff time.Duration) Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			return ExponentialBackoff(attempt, maxBackoff)
		},
	}
}

func ExponentialBackoff(attempt int, maxBackoff time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// 2^34 s already overflows time.Duration; clamp before converting.
	if attempt > 34 {
		return maxBackoff
	}
	d := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleepFunc func(ctx context.Context, d time.Duration) error

func (f SleepFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerSleeper sleeps on a real timer.
var TimerSleeper Sleeper = SleepFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
})

// AttemptFunc runs attempt n (1-based).
type AttemptFunc func(ctx context.Context, n int) generation.Outcome

type Controller struct {
	log     *logger.Logger
	policy  Policy
	sleeper Sleeper
	now     func() time.Time
}

func NewController(log *logger.Logger, policy Policy, sleeper Sleeper) *Controller {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.Backoff == nil {
		policy.Backoff = DefaultPolicy().Backoff
	}
	if sleeper == nil {
		sleeper = TimerSleeper
	}
	return &Controller{
		log:     log.With("service", "RetryController"),
		policy:  policy,
		sleeper: sleeper,
		now:     time.Now,
	}
}

func (c *Controller) Policy() Policy { return c.policy }

// Run calls attempt until it yields a draft or the policy is exhausted. It
// never panics and never returns an error; failure is a FAILED result.
func (c *Controller) Run(ctx context.Context, section domain.SectionRequest, attempt AttemptFunc) domain.SectionResult {
	start := c.now()
	var last generation.Failure

	for n := 1; n <= c.policy.MaxAttempts; n++ {
		out := c.safeAttempt(ctx, n, attempt)
		if out.OK() {
			d := out.Draft
			if n > 1 {
				c.log.Info("Section succeeded after retry", "section_id", section.ID, "attempt", n)
			}
			return domain.SectionResult{
				SectionID:          section.ID,
				SectionName:        section.Name,
				TemplateID:         section.TemplateID,
				Status:             domain.SectionSuccess,
				Content:            d.Content,
				LineReferences:     d.LineReferences,
				ConfidenceScore:    d.ConfidenceScore,
				AttemptCount:       n,
				ProcessingTime:     c.now().Sub(start),
				PreferencesApplied: d.PreferencesApplied,
			}
		}

		last = *out.Failure
		c.log.Warn("Section attempt failed",
			"section_id", section.ID,
			"attempt", n,
			"max_attempts", c.policy.MaxAttempts,
			"kind", string(last.Kind),
			"error", last.Message,
		)
		if n == c.policy.MaxAttempts {
			break
		}

		wait := c.policy.Backoff(n)
		if err := c.sleeper.Sleep(ctx, wait); err != nil {
			last = generation.Failure{
				Kind:    generation.FailureBackend,
				Message: fmt.Sprintf("retry cancelled after attempt %d: %v", n, err),
				Trace:   last.Trace,
			}
			break
		}
	}

	c.log.Error("Section failed after all retries", "section_id", section.ID, "attempts", c.policy.MaxAttempts)
	return domain.SectionResult{
		SectionID:      section.ID,
		SectionName:    section.Name,
		TemplateID:     section.TemplateID,
		Status:         domain.SectionFailed,
		Content:        last.Sentinel(),
		LineReferences: []domain.LineReference{},
		AttemptCount:   c.policy.MaxAttempts,
		ProcessingTime: c.now().Sub(start),
		ErrorMessage:   last.Message,
		ErrorTrace:     last.Trace,
	}
}

func (c *Controller) safeAttempt(ctx context.Context, n int, attempt AttemptFunc) (out generation.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = generation.Fail(generation.FailureBackend, fmt.Sprintf("panic: %v", r), string(debug.Stack()))
		}
	}()
	out = attempt(ctx, n)
	if !out.OK() && out.Failure == nil {
		out = generation.Fail(generation.FailureBackend, "attempt returned no result", "")
	}
	return out
}
