package services

import (
	"context"

	"github.com/Lllllllleong/documentingest/internal/models"
)

// Stage names used in logs, errors and the run payload.
const (
	StageMetadata   = "MetadataExtract"
	StageThumbnail  = "ThumbnailRender"
	StageTextSubmit = "TextJobSubmit"
	StageTextPoll   = "TextJobPoll"
	StageMerge      = "RecordMerge"
	StageCommit     = "RecordCommit"
	StageCompensate = "Compensate"
)

// Stages bundles the stage functions behind the single interface the
// workflow engine drives.
type Stages struct {
	Metadata      *MetadataFunction
	Thumbnail     *ThumbnailFunction
	TextDetection *TextDetectionFunction
	Merge         *MergeFunction
	Commit        *CommitFunction
	Compensation  *CompensateFunction
}

func (s *Stages) ExtractMetadata(ctx context.Context, upload models.UploadEvent) (*models.MetadataResult, error) {
	return s.Metadata.Process(ctx, upload)
}

func (s *Stages) RenderThumbnail(ctx context.Context, file models.FileDescriptor) (*models.Thumbnail, error) {
	return s.Thumbnail.Process(ctx, file)
}

func (s *Stages) SubmitTextJob(ctx context.Context, file models.FileDescriptor) (*models.TextJob, error) {
	return s.TextDetection.Submit(ctx, file)
}

func (s *Stages) PollTextJob(ctx context.Context, job models.TextJob) (*models.TextJob, error) {
	return s.TextDetection.Poll(ctx, job)
}

func (s *Stages) MergeRecord(ctx context.Context, in models.MergeInput) (*models.MergedRecord, error) {
	return s.Merge.Process(ctx, in)
}

func (s *Stages) CommitRecord(ctx context.Context, merged models.MergedRecord) error {
	return s.Commit.Process(ctx, merged)
}

func (s *Stages) Compensate(ctx context.Context, failure models.Failure) *models.CompensationReport {
	return s.Compensation.Process(ctx, failure)
}
