// Package workflow runs the document ingestion pipeline: metadata extraction,
// then thumbnail rendering alongside OCR, then merge and commit. Any failure
// before the commit diverts the run to a single compensation pass.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/Lllllllleong/documentingest/internal/services"
)

// StageRunner is the set of stage functions the engine sequences.
type StageRunner interface {
	TextStages
	ExtractMetadata(ctx context.Context, upload models.UploadEvent) (*models.MetadataResult, error)
	RenderThumbnail(ctx context.Context, file models.FileDescriptor) (*models.Thumbnail, error)
	MergeRecord(ctx context.Context, in models.MergeInput) (*models.MergedRecord, error)
	CommitRecord(ctx context.Context, merged models.MergedRecord) error
	Compensate(ctx context.Context, failure models.Failure) *models.CompensationReport
}

// RunArchiver stores the summary of a finished run.
type RunArchiver interface {
	Archive(ctx context.Context, summary models.RunSummary) error
}

// Publisher emits the success event after a commit.
type Publisher interface {
	Publish(ctx context.Context, detailType string, detail any) error
}

// Success is the result of a committed run.
type Success struct {
	RunID       string
	DocumentKey string
	Record      models.MergedRecord
}

// Engine drives runs. It keeps no per-run state, so one Engine serves any
// number of concurrent runs.
type Engine struct {
	stages    StageRunner
	poller    *PollController
	policy    Policy
	archiver  RunArchiver
	publisher Publisher
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithArchiver records every finished run.
func WithArchiver(a RunArchiver) Option {
	return func(e *Engine) { e.archiver = a }
}

// WithPublisher announces committed runs.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// NewEngine builds an engine over the given stages.
func NewEngine(stages StageRunner, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		stages: stages,
		poller: NewPollController(stages, policy),
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes one upload. On failure the returned error is always a
// *CompensatedFailure.
func (e *Engine) Run(ctx context.Context, upload models.UploadEvent) (*Success, error) {
	run := newRun(upload, e.now(), e.policy.RunTimeout)
	logCtx := slog.With("runId", run.RunID, "documentKey", run.DocumentKey, "gcsBucket", upload.Bucket, "gcsObject", upload.Key)
	logCtx.Info("Workflow run started.", "deadline", run.Deadline)

	runCtx, cancel := context.WithDeadline(ctx, run.Deadline)
	defer cancel()

	merged, err := e.drive(runCtx, run, logCtx)
	if err != nil {
		return nil, e.compensate(ctx, run, err, logCtx)
	}

	if err := run.advance(true); err != nil {
		return nil, fmt.Errorf("run %s: %w", run.RunID, err)
	}
	logCtx.Info("Workflow run succeeded.", "elapsed", e.now().Sub(run.StartedAt).String())
	e.announce(ctx, run, merged, logCtx)
	e.archive(ctx, run, "", nil, nil, logCtx)

	return &Success{RunID: run.RunID, DocumentKey: run.DocumentKey, Record: *merged}, nil
}

// drive runs the stages up to and including the commit. On success the run
// is in COMMITTED.
func (e *Engine) drive(ctx context.Context, run *Run, logCtx *slog.Logger) (*models.MergedRecord, error) {
	meta, err := call(e, ctx, services.StageMetadata, func(ctx context.Context) (*models.MetadataResult, error) {
		return e.stages.ExtractMetadata(ctx, run.Upload)
	})
	if err != nil {
		return nil, err
	}
	if err := e.complete(run, map[string]any{KeyMetadata: meta}); err != nil {
		return nil, err
	}
	logCtx.Info("Stage complete.", "stage", run.Stage, "pageCount", meta.Metadata.PageCount)

	branches, err := withTimeout(ctx, e.policy.ParallelTimeout, "Parallel", func(ctx context.Context) (*branchResults, error) {
		return e.runParallel(ctx, meta)
	})
	if err != nil {
		return nil, err
	}
	if err := e.complete(run, map[string]any{KeyThumbnail: branches.thumbnail, KeyTextJob: branches.textJob}); err != nil {
		return nil, err
	}
	logCtx.Info("Stage complete.", "stage", run.Stage, "thumbnail", branches.thumbnail.Ref().String())

	merged, err := call(e, ctx, services.StageMerge, func(ctx context.Context) (*models.MergedRecord, error) {
		return e.stages.MergeRecord(ctx, models.MergeInput{
			Metadata:  meta,
			Thumbnail: branches.thumbnail,
			TextJob:   branches.textJob,
			RunID:     run.RunID,
		})
	})
	if err != nil {
		return nil, err
	}
	if err := e.complete(run, map[string]any{KeyMerged: merged}); err != nil {
		return nil, err
	}
	logCtx.Info("Stage complete.", "stage", run.Stage)

	_, err = call(e, ctx, services.StageCommit, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.stages.CommitRecord(ctx, *merged)
	})
	if err != nil {
		return nil, err
	}
	if err := e.complete(run, nil); err != nil {
		return nil, err
	}
	logCtx.Info("Stage complete.", "stage", run.Stage)
	return merged, nil
}

// complete records stage outputs and follows the success edge.
func (e *Engine) complete(run *Run, outputs map[string]any) error {
	for k, v := range outputs {
		if err := run.Put(k, v); err != nil {
			return stageFailure(string(run.Stage), err)
		}
	}
	if err := run.advance(true); err != nil {
		return stageFailure(string(run.Stage), err)
	}
	return nil
}

// compensate moves the run to COMPENSATING, runs the handler once on a
// context that outlives the run deadline, and ends the run in FAILED.
func (e *Engine) compensate(ctx context.Context, run *Run, cause error, logCtx *slog.Logger) error {
	failedStage := failedStageOf(cause)
	logCtx.Error("Workflow stage failed.", "failedStage", failedStage, "stage", run.Stage, "error", cause)

	failure := &CompensatedFailure{
		RunID:       run.RunID,
		DocumentKey: run.DocumentKey,
		FailedStage: failedStage,
		Err:         cause,
	}
	if err := run.advance(false); err != nil {
		logCtx.Error("CRITICAL: run cannot enter compensation.", "error", err)
		return failure
	}

	meta, _ := payloadValue[*models.MetadataResult](run, KeyMetadata)
	thumb, _ := payloadValue[*models.Thumbnail](run, KeyThumbnail)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.policy.CompensateTimeout)
	failure.Report = e.stages.Compensate(cctx, models.Failure{
		RunID:       run.RunID,
		Upload:      run.Upload,
		FailedStage: failedStage,
		Err:         cause,
		Metadata:    meta,
		Thumbnail:   thumb,
	})
	cancel()

	if err := run.advance(true); err != nil {
		logCtx.Error("CRITICAL: run cannot leave compensation.", "error", err)
	}
	logCtx.Warn("Workflow run failed and was compensated.", "failedStage", failedStage, "published", failure.Report != nil && failure.Report.Published)
	e.archive(ctx, run, failedStage, cause, failure.Report, logCtx)
	return failure
}

func (e *Engine) announce(ctx context.Context, run *Run, merged *models.MergedRecord, logCtx *slog.Logger) {
	if e.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.policy.StageTimeout)
	defer cancel()
	detail := models.ProcessingSucceededDetail{
		Key:          run.DocumentKey,
		DocumentRef:  merged.DocumentRef,
		ThumbnailRef: merged.ThumbnailRef,
		RunID:        run.RunID,
	}
	if err := e.publisher.Publish(pctx, models.EventProcessingSucceeded, detail); err != nil {
		logCtx.Error("Failed to publish ProcessingSucceeded event.", "error", err)
	}
}

func (e *Engine) archive(ctx context.Context, run *Run, failedStage string, cause error, report *models.CompensationReport, logCtx *slog.Logger) {
	if e.archiver == nil {
		return
	}
	summary := models.RunSummary{
		RunID:        run.RunID,
		DocumentKey:  run.DocumentKey,
		Bucket:       run.Upload.Bucket,
		ObjectKey:    run.Upload.Key,
		Stage:        string(run.Stage),
		FailedStage:  failedStage,
		StartedAt:    run.StartedAt,
		FinishedAt:   e.now(),
		Compensation: report,
	}
	if cause != nil {
		summary.Error = cause.Error()
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.policy.StageTimeout)
	defer cancel()
	if err := e.archiver.Archive(actx, summary); err != nil {
		logCtx.Error("Failed to archive workflow run.", "error", err)
	}
}

// call runs one idempotent stage under its own deadline, retrying transient
// failures within it.
func call[T any](e *Engine, ctx context.Context, stage string, fn func(context.Context) (T, error)) (T, error) {
	return withTimeout(ctx, e.policy.StageTimeout, stage, func(ctx context.Context) (T, error) {
		return retryCall(ctx, e.policy.StageRetry, stage, fn)
	})
}

// withTimeout runs fn under its own deadline.
func withTimeout[T any](ctx context.Context, d time.Duration, stage string, fn func(context.Context) (T, error)) (T, error) {
	sctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	v, err := fn(sctx)
	if err != nil {
		var zero T
		return zero, stageFailure(stage, err)
	}
	return v, nil
}
