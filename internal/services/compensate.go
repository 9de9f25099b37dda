package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
)

// minObjectKeyLen is the shortest object key that can still name a PDF ("a.pdf").
const minObjectKeyLen = 5

// CompensateFunction removes everything a failed run may have left behind
// and announces the failure.
type CompensateFunction struct {
	blobs           BlobStore
	records         RecordStore
	publisher       EventPublisher
	assetBucket     string
	thumbnailBucket string
}

// NewCompensate builds the compensation handler.
func NewCompensate(blobs BlobStore, records RecordStore, publisher EventPublisher, assetBucket, thumbnailBucket string) *CompensateFunction {
	return &CompensateFunction{
		blobs:           blobs,
		records:         records,
		publisher:       publisher,
		assetBucket:     assetBucket,
		thumbnailBucket: thumbnailBucket,
	}
}

// Process runs every cleanup step regardless of earlier step failures and
// never returns an error. The report says what happened.
func (f *CompensateFunction) Process(ctx context.Context, failure models.Failure) *models.CompensationReport {
	objectKey := failure.Upload.Key
	uploadBucket := failure.Upload.Bucket
	if failure.Metadata != nil && failure.Metadata.File.Key != "" {
		objectKey = failure.Metadata.File.Key
		uploadBucket = failure.Metadata.File.Bucket
	}

	report := &models.CompensationReport{}
	logCtx := slog.With("runId", failure.RunID, "gcsObject", objectKey, "failedStage", failure.FailedStage)

	if len(objectKey) < minObjectKeyLen {
		msg := fmt.Sprintf("could not determine filename from %q", objectKey)
		logCtx.Error("Compensation skipped.", "error", msg)
		report.Errors = append(report.Errors, msg)
		return report
	}
	key := models.DocumentKey(objectKey)
	report.DocumentKey = key
	logCtx = logCtx.With("documentKey", key)
	logCtx.Warn("Compensating failed run.", "cause", failure.Err)

	var owner, filename string
	docs, err := f.records.Query(ctx, key)
	switch {
	case err != nil:
		logCtx.Error("Could not look up document owner.", "error", err)
		report.Errors = append(report.Errors, fmt.Sprintf("query %s: %v", key, err))
	case len(docs) == 0:
		logCtx.Warn("No record found for failed document.")
	default:
		owner = docs[0].Owner
		filename = docs[0].FileDetails.FileName
	}

	thumbRef := models.BlobRef{Bucket: f.thumbnailBucket, Key: models.ThumbnailKey(objectKey)}
	if failure.Thumbnail != nil && failure.Thumbnail.Key != "" {
		thumbRef = failure.Thumbnail.Ref()
	}

	f.step(ctx, logCtx, report, "record "+key, func(ctx context.Context) error {
		return f.records.Delete(ctx, key)
	})
	for _, ref := range []models.BlobRef{
		{Bucket: uploadBucket, Key: objectKey},
		{Bucket: f.assetBucket, Key: objectKey},
		thumbRef,
	} {
		f.step(ctx, logCtx, report, ref.String(), func(ctx context.Context) error {
			return f.blobs.Delete(ctx, ref)
		})
	}

	detail := models.ProcessingFailedDetail{Key: key, Owner: owner, Filename: filename}
	if err := f.publisher.Publish(ctx, models.EventProcessingFailed, detail); err != nil {
		logCtx.Error("Failed to publish ProcessingFailed event.", "error", err)
		report.Errors = append(report.Errors, fmt.Sprintf("publish: %v", err))
	} else {
		report.Published = true
	}
	return report
}

func (f *CompensateFunction) step(ctx context.Context, logCtx *slog.Logger, report *models.CompensationReport, target string, del func(context.Context) error) {
	err := del(ctx)
	switch {
	case err == nil:
		report.Deleted = append(report.Deleted, target)
	case faults.IsNotFound(err):
		logCtx.Info("Cannot delete, this may not be an error.", "target", target)
		report.Missing = append(report.Missing, target)
	default:
		logCtx.Error("Cleanup step failed.", "target", target, "error", err)
		report.Errors = append(report.Errors, fmt.Sprintf("delete %s: %v", target, err))
	}
}
