package workflow

import (
	"fmt"
	"time"

	"github.com/Lllllllleong/documentingest/internal/gcp"
)

// Policy holds the timing of a run.
type Policy struct {
	StageTimeout      time.Duration
	ParallelTimeout   time.Duration
	RunTimeout        time.Duration
	CompensateTimeout time.Duration

	PollInterval time.Duration
	PageDelay    time.Duration

	StatusRetry RetryPolicy
	SubmitRetry RetryPolicy
	StageRetry  RetryPolicy
}

// DefaultPolicy mirrors the production timing: a status check every minute,
// 100 retries of a failing status call starting at 5s and doubling, and a
// 30 minute ceiling for the whole run.
func DefaultPolicy() Policy {
	return Policy{
		StageTimeout:      2 * time.Minute,
		ParallelTimeout:   28 * time.Minute,
		RunTimeout:        30 * time.Minute,
		CompensateTimeout: 2 * time.Minute,
		PollInterval:      60 * time.Second,
		PageDelay:         time.Second,
		StatusRetry: RetryPolicy{
			MaxAttempts:     100,
			InitialInterval: 5 * time.Second,
			Multiplier:      2,
			MaxInterval:     10 * time.Minute,
		},
		SubmitRetry: RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: 5 * time.Second,
			Multiplier:      2,
			MaxInterval:     time.Minute,
		},
		StageRetry: RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: 2 * time.Second,
			Multiplier:      2,
			MaxInterval:     30 * time.Second,
		},
	}
}

// LoadPolicy reads overrides from the environment on top of DefaultPolicy.
func LoadPolicy() (Policy, error) {
	p := DefaultPolicy()
	var err error

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"STAGE_TIMEOUT", &p.StageTimeout},
		{"PARALLEL_TIMEOUT", &p.ParallelTimeout},
		{"RUN_TIMEOUT", &p.RunTimeout},
		{"COMPENSATE_TIMEOUT", &p.CompensateTimeout},
		{"TEXT_POLL_INTERVAL", &p.PollInterval},
		{"TEXT_PAGE_DELAY", &p.PageDelay},
		{"STATUS_RETRY_INITIAL", &p.StatusRetry.InitialInterval},
		{"STATUS_RETRY_MAX_INTERVAL", &p.StatusRetry.MaxInterval},
	}
	for _, d := range durations {
		if *d.dst, err = gcp.GetEnvDuration(d.key, *d.dst); err != nil {
			return Policy{}, err
		}
	}

	attempts, err := gcp.GetEnvInt("STATUS_RETRY_ATTEMPTS", int(p.StatusRetry.MaxAttempts))
	if err != nil {
		return Policy{}, err
	}
	if attempts < 1 {
		return Policy{}, fmt.Errorf("STATUS_RETRY_ATTEMPTS must be at least 1")
	}
	p.StatusRetry.MaxAttempts = uint(attempts)

	if p.StatusRetry.Multiplier, err = gcp.GetEnvFloat("STATUS_RETRY_MULTIPLIER", p.StatusRetry.Multiplier); err != nil {
		return Policy{}, err
	}
	if p.StatusRetry.Multiplier < 1 {
		return Policy{}, fmt.Errorf("STATUS_RETRY_MULTIPLIER must be at least 1")
	}

	submits, err := gcp.GetEnvInt("SUBMIT_RETRY_ATTEMPTS", int(p.SubmitRetry.MaxAttempts))
	if err != nil {
		return Policy{}, err
	}
	if submits < 1 {
		return Policy{}, fmt.Errorf("SUBMIT_RETRY_ATTEMPTS must be at least 1")
	}
	p.SubmitRetry.MaxAttempts = uint(submits)

	stageAttempts, err := gcp.GetEnvInt("STAGE_RETRY_ATTEMPTS", int(p.StageRetry.MaxAttempts))
	if err != nil {
		return Policy{}, err
	}
	if stageAttempts < 1 {
		return Policy{}, fmt.Errorf("STAGE_RETRY_ATTEMPTS must be at least 1")
	}
	p.StageRetry.MaxAttempts = uint(stageAttempts)

	if p.StageTimeout <= 0 || p.ParallelTimeout <= 0 || p.RunTimeout <= 0 || p.CompensateTimeout <= 0 {
		return Policy{}, fmt.Errorf("timeouts must be positive")
	}
	if p.ParallelTimeout > p.RunTimeout {
		return Policy{}, fmt.Errorf("PARALLEL_TIMEOUT (%s) must not exceed RUN_TIMEOUT (%s)", p.ParallelTimeout, p.RunTimeout)
	}
	return p, nil
}
