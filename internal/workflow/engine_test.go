package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/Lllllllleong/documentingest/internal/services"
	"github.com/Lllllllleong/documentingest/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var a1 = models.UploadEvent{Bucket: "up", Key: "a1.pdf"}

func testPolicy() Policy {
	fast := RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond, Multiplier: 2, MaxInterval: 5 * time.Millisecond}
	return Policy{
		StageTimeout:      time.Second,
		ParallelTimeout:   2 * time.Second,
		RunTimeout:        3 * time.Second,
		CompensateTimeout: time.Second,
		PollInterval:      time.Millisecond,
		StatusRetry:       RetryPolicy{MaxAttempts: 5, InitialInterval: time.Millisecond, Multiplier: 2, MaxInterval: 5 * time.Millisecond},
		SubmitRetry:       fast,
		StageRetry:        fast,
	}
}

// countingStages counts the calls that matter for the commit/compensate
// exclusivity properties.
type countingStages struct {
	StageRunner
	merges        atomic.Int32
	commits       atomic.Int32
	compensations atomic.Int32
}

func (c *countingStages) MergeRecord(ctx context.Context, in models.MergeInput) (*models.MergedRecord, error) {
	c.merges.Add(1)
	return c.StageRunner.MergeRecord(ctx, in)
}

func (c *countingStages) CommitRecord(ctx context.Context, merged models.MergedRecord) error {
	err := c.StageRunner.CommitRecord(ctx, merged)
	if err == nil {
		c.commits.Add(1)
	}
	return err
}

func (c *countingStages) Compensate(ctx context.Context, failure models.Failure) *models.CompensationReport {
	c.compensations.Add(1)
	return c.StageRunner.Compensate(ctx, failure)
}

type memoryArchive struct {
	mu   sync.Mutex
	runs []models.RunSummary
}

func (a *memoryArchive) Archive(_ context.Context, s models.RunSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs = append(a.runs, s)
	return nil
}

type fixture struct {
	blobs      *testsupport.MemoryBlobStore
	records    *testsupport.MemoryRecordStore
	detector   *testsupport.ScriptedDetector
	renderer   *testsupport.StubRenderer
	publisher  *testsupport.RecordingPublisher
	archive    *memoryArchive
	inspectErr error
	stages     *countingStages
	engine     *Engine
}

func newFixture(t *testing.T, policy Policy, keys ...string) *fixture {
	t.Helper()
	if len(keys) == 0 {
		keys = []string{a1.Key}
	}
	fx := &fixture{
		blobs:     testsupport.NewMemoryBlobStore(),
		records:   testsupport.NewMemoryRecordStore(),
		detector:  &testsupport.ScriptedDetector{Script: []testsupport.PollStep{testsupport.Pending(), testsupport.Succeeded("", "hello", "world")}},
		renderer:  &testsupport.StubRenderer{},
		publisher: &testsupport.RecordingPublisher{},
		archive:   &memoryArchive{},
	}
	for _, key := range keys {
		fx.blobs.Seed(models.BlobRef{Bucket: "up", Key: key}, testsupport.MinimalPDF(3, testsupport.PDFInfo{}), "application/pdf")
		fx.records.Seed(models.DocumentKey(key), models.Document{
			Owner:       "user-1",
			Name:        "Quarterly report",
			FileDetails: models.FileDetails{FileName: "Q1 Report.pdf"},
			Tags:        []string{"finance"},
		})
	}

	stages := &services.Stages{
		Metadata: services.NewMetadata(fx.blobs, "assets").WithInspector(func([]byte) (models.Metadata, error) {
			if fx.inspectErr != nil {
				return models.Metadata{}, fx.inspectErr
			}
			return models.Metadata{PageCount: 3}, nil
		}),
		Thumbnail:     services.NewThumbnail(fx.blobs, fx.renderer, "thumb"),
		TextDetection: services.NewTextDetection(fx.detector, 0),
		Merge:         services.NewMerge(fx.blobs),
		Commit:        services.NewCommit(fx.records),
		Compensation:  services.NewCompensate(fx.blobs, fx.records, fx.publisher, "assets", "thumb"),
	}
	fx.stages = &countingStages{StageRunner: stages}
	fx.engine = NewEngine(fx.stages, policy, WithArchiver(fx.archive), WithPublisher(fx.publisher))
	return fx
}

func TestRunCommitsProcessedRecord(t *testing.T) {
	fx := newFixture(t, testPolicy())

	res, err := fx.engine.Run(context.Background(), a1)
	require.NoError(t, err)
	assert.Equal(t, "a1", res.DocumentKey)
	assert.Equal(t, "thumb/a1-thumb.png", res.Record.ThumbnailRef)
	assert.Equal(t, "hello world", res.Record.ExtractedText)
	assert.Equal(t, 3, res.Record.Metadata.PageCount)

	docs, err := fx.records.Query(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a1", docs[0].ID)
	assert.Equal(t, "thumb/a1-thumb.png", docs[0].ThumbnailRef)
	assert.Equal(t, "hello world", docs[0].ExtractedText)
	assert.Equal(t, "assets/a1.pdf", docs[0].DocumentRef)
	assert.Equal(t, "user-1", docs[0].Owner)
	assert.Equal(t, []string{"finance"}, docs[0].Tags)
	assert.Equal(t, res.RunID, docs[0].WorkflowExecutionID)

	assert.Equal(t, int32(1), fx.stages.commits.Load())
	assert.Equal(t, int32(0), fx.stages.compensations.Load())

	assert.False(t, fx.blobs.Has(a1.Ref()), "upload is removed once the asset copy exists")
	assert.True(t, fx.blobs.Has(models.BlobRef{Bucket: "assets", Key: "a1.pdf"}))
	assert.True(t, fx.blobs.Has(models.BlobRef{Bucket: "thumb", Key: "a1-thumb.png"}))

	assert.Len(t, fx.publisher.OfType(models.EventProcessingSucceeded), 1)
	assert.Empty(t, fx.publisher.OfType(models.EventProcessingFailed))

	require.Len(t, fx.archive.runs, 1)
	assert.Equal(t, string(StageSucceeded), fx.archive.runs[0].Stage)
	assert.Empty(t, fx.archive.runs[0].FailedStage)
}

func TestRunFailureCompensatesOnce(t *testing.T) {
	boom := errors.New("backend unavailable")

	tests := []struct {
		name        string
		setup       func(fx *fixture)
		failedStage string
	}{
		{
			name:        "metadata",
			setup:       func(fx *fixture) { fx.inspectErr = faults.Permanent(services.StageMetadata, "inspect", "encrypted", nil) },
			failedStage: services.StageMetadata,
		},
		{
			name:        "thumbnail",
			setup:       func(fx *fixture) { fx.renderer.Err = faults.Permanent("", "ghostscript", "exit status 1", nil) },
			failedStage: services.StageThumbnail,
		},
		{
			name:        "text submit",
			setup:       func(fx *fixture) { fx.detector.SubmitErr = boom },
			failedStage: services.StageTextSubmit,
		},
		{
			name:        "text job failed",
			setup:       func(fx *fixture) { fx.detector.Script = []testsupport.PollStep{testsupport.Pending(), testsupport.Failed()} },
			failedStage: services.StageTextPoll,
		},
		{
			name:        "status check exhausted",
			setup:       func(fx *fixture) { fx.detector.Script = []testsupport.PollStep{{Err: boom}} },
			failedStage: services.StageTextPoll,
		},
		{
			name:        "merge",
			setup:       func(fx *fixture) { fx.blobs.FailDelete[a1.Ref().String()] = boom },
			failedStage: services.StageMerge,
		},
		{
			name:        "commit",
			setup:       func(fx *fixture) { fx.records.FailUpdate = boom },
			failedStage: services.StageCommit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, testPolicy())
			tt.setup(fx)

			res, err := fx.engine.Run(context.Background(), a1)
			require.Nil(t, res)
			var failure *CompensatedFailure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.failedStage, failure.FailedStage)
			assert.Equal(t, "a1", failure.DocumentKey)
			require.NotNil(t, failure.Report)

			assert.Equal(t, int32(0), fx.stages.commits.Load())
			assert.Equal(t, int32(1), fx.stages.compensations.Load())
			assert.False(t, fx.records.Exists("a1"))
			assert.Len(t, fx.publisher.OfType(models.EventProcessingFailed), 1)
			assert.Empty(t, fx.publisher.OfType(models.EventProcessingSucceeded))

			require.Len(t, fx.archive.runs, 1)
			assert.Equal(t, string(StageFailed), fx.archive.runs[0].Stage)
			assert.Equal(t, tt.failedStage, fx.archive.runs[0].FailedStage)
		})
	}
}

func TestRunOCRFailureRemovesArtifacts(t *testing.T) {
	fx := newFixture(t, testPolicy())
	fx.detector.Script = []testsupport.PollStep{testsupport.Failed()}

	_, err := fx.engine.Run(context.Background(), a1)
	require.Error(t, err)

	assert.False(t, fx.blobs.Has(a1.Ref()))
	assert.False(t, fx.blobs.Has(models.BlobRef{Bucket: "assets", Key: "a1.pdf"}))
	assert.False(t, fx.blobs.Has(models.BlobRef{Bucket: "thumb", Key: "a1-thumb.png"}))
	assert.False(t, fx.records.Exists("a1"))

	events := fx.publisher.OfType(models.EventProcessingFailed)
	require.Len(t, events, 1)
	assert.Equal(t, models.ProcessingFailedDetail{Key: "a1", Owner: "user-1", Filename: "Q1 Report.pdf"}, events[0].Detail)
}

func TestThumbnailFailureSkipsMerge(t *testing.T) {
	fx := newFixture(t, testPolicy())
	fx.renderer.Err = faults.Permanent("", "ghostscript", "renderer did not produce an output file", nil)

	_, err := fx.engine.Run(context.Background(), a1)
	require.Error(t, err)
	assert.Equal(t, int32(0), fx.stages.merges.Load())
	assert.Equal(t, int32(1), fx.stages.compensations.Load())
}

func TestTextFailureCancelsThumbnail(t *testing.T) {
	fx := newFixture(t, testPolicy())
	fx.detector.SubmitErr = faults.Permanent("", "submit", "bad request", nil)
	cancelled := make(chan struct{})
	fx.renderer.Hook = func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}

	_, err := fx.engine.Run(context.Background(), a1)
	var failure *CompensatedFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, services.StageTextSubmit, failure.FailedStage)
	select {
	case <-cancelled:
	default:
		t.Fatal("thumbnail branch was not cancelled")
	}
}

func TestParallelTimeoutCompensates(t *testing.T) {
	policy := testPolicy()
	policy.ParallelTimeout = 50 * time.Millisecond
	fx := newFixture(t, policy)
	fx.detector.Script = []testsupport.PollStep{testsupport.Pending()}
	fx.renderer.Hook = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := fx.engine.Run(context.Background(), a1)
	require.Error(t, err)
	assert.True(t, faults.IsTimeout(err))
	assert.Equal(t, int32(1), fx.stages.compensations.Load())
	assert.Equal(t, int32(0), fx.stages.commits.Load())
}

func TestThumbnailStageTimeoutIsShorterThanParallel(t *testing.T) {
	policy := testPolicy()
	policy.StageTimeout = 50 * time.Millisecond
	policy.ParallelTimeout = 2 * time.Second
	fx := newFixture(t, policy)
	fx.detector.Script = []testsupport.PollStep{testsupport.Pending()}
	fx.renderer.Hook = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	start := time.Now()
	_, err := fx.engine.Run(context.Background(), a1)
	elapsed := time.Since(start)

	var failure *CompensatedFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, services.StageThumbnail, failure.FailedStage)
	assert.True(t, faults.IsTimeout(err))
	assert.Less(t, elapsed, time.Second, "a hung renderer must not hold the run for the parallel budget")
	assert.Equal(t, int32(1), fx.stages.compensations.Load())
}

func TestCompensationOutlivesRunDeadline(t *testing.T) {
	policy := testPolicy()
	policy.RunTimeout = 50 * time.Millisecond
	policy.ParallelTimeout = 50 * time.Millisecond
	fx := newFixture(t, policy)
	fx.detector.Script = []testsupport.PollStep{testsupport.Pending()}

	_, err := fx.engine.Run(context.Background(), a1)
	var failure *CompensatedFailure
	require.ErrorAs(t, err, &failure)
	assert.True(t, faults.IsTimeout(err))
	assert.True(t, failure.Report.Published)
	assert.False(t, fx.records.Exists("a1"))
}

func TestConcurrentRunsAreIndependent(t *testing.T) {
	keys := []string{"doc-1.pdf", "doc-2.pdf", "doc-3.pdf"}
	fx := newFixture(t, testPolicy(), keys...)
	fx.detector.Script = []testsupport.PollStep{testsupport.Succeeded("", "text")}

	var wg sync.WaitGroup
	errs := make([]error, len(keys))
	for i, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = fx.engine.Run(context.Background(), models.UploadEvent{Bucket: "up", Key: key})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, keys[i])
	}
	assert.Equal(t, int32(3), fx.stages.commits.Load())
	for _, key := range keys {
		docs, err := fx.records.Query(context.Background(), models.DocumentKey(key))
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, fmt.Sprintf("thumb/%s", models.ThumbnailKey(key)), docs[0].ThumbnailRef)
	}
}

func TestSuccessEventFailureKeepsCommit(t *testing.T) {
	fx := newFixture(t, testPolicy())
	fx.publisher.Err = errors.New("sink down")

	res, err := fx.engine.Run(context.Background(), a1)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, int32(0), fx.stages.compensations.Load())
	assert.True(t, fx.records.Exists("a1"))
}
