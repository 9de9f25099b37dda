package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/Lllllllleong/documentingest/internal/services"
)

// TextStages is the part of the stage set the poll controller drives.
type TextStages interface {
	SubmitTextJob(ctx context.Context, file models.FileDescriptor) (*models.TextJob, error)
	PollTextJob(ctx context.Context, job models.TextJob) (*models.TextJob, error)
}

// PollController waits for an OCR job. The outer loop handles a job that is
// still running and has no attempt limit; the context deadline ends it. Each
// status check is separately retried when the call itself fails.
type PollController struct {
	stages      TextStages
	interval    time.Duration
	statusRetry RetryPolicy
	submitRetry RetryPolicy
	sleep       func(context.Context, time.Duration) error
}

// NewPollController builds a controller from the run policy.
func NewPollController(stages TextStages, policy Policy) *PollController {
	return &PollController{
		stages:      stages,
		interval:    policy.PollInterval,
		statusRetry: policy.StatusRetry,
		submitRetry: policy.SubmitRetry,
		sleep:       services.Sleep,
	}
}

// Await submits the job and returns it once it has succeeded, with the text
// of every result page joined.
func (p *PollController) Await(ctx context.Context, file models.FileDescriptor) (*models.TextJob, error) {
	job, err := retryCall(ctx, p.submitRetry, services.StageTextSubmit, func(ctx context.Context) (*models.TextJob, error) {
		return p.stages.SubmitTextJob(ctx, file)
	})
	if err != nil {
		return nil, stageFailure(services.StageTextSubmit, err)
	}
	logCtx := slog.With("jobId", job.JobID, "gcsObject", file.Key)
	logCtx.Info("Text detection submitted, waiting for completion.")

	for checks := 1; ; checks++ {
		if err := p.sleep(ctx, p.interval); err != nil {
			return nil, stageFailure(services.StageTextPoll, err)
		}
		current := *job
		next, err := retryCall(ctx, p.statusRetry, services.StageTextPoll, func(ctx context.Context) (*models.TextJob, error) {
			return p.stages.PollTextJob(ctx, current)
		})
		if err != nil {
			return nil, stageFailure(services.StageTextPoll, err)
		}

		switch next.Status {
		case models.TextJobPending:
			logCtx.Debug("Text detection still running.", "checks", checks)
			job = next
		case models.TextJobSucceeded:
			logCtx.Info("Text detection finished.", "checks", checks, "chars", len(next.Text))
			return next, nil
		default:
			logCtx.Error("Text detection job failed.", "checks", checks, "status", next.Status)
			return nil, stageFailure(services.StageTextPoll, faults.Permanent(services.StageTextPoll, "poll", "text detection job failed", nil))
		}
	}
}
