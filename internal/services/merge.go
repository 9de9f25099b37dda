package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
)

// MergeFunction combines the stage outputs into the record update.
type MergeFunction struct {
	blobs BlobStore
	now   func() time.Time
}

// NewMerge builds the merge stage.
func NewMerge(blobs BlobStore) *MergeFunction {
	return &MergeFunction{blobs: blobs, now: func() time.Time { return time.Now().UTC() }}
}

// Process builds the merged record and then deletes the original upload,
// which the asset copy has replaced.
func (f *MergeFunction) Process(ctx context.Context, in models.MergeInput) (*models.MergedRecord, error) {
	switch {
	case in.Metadata == nil:
		return nil, faults.Permanent(StageMerge, "merge", "metadata output is missing", nil)
	case in.Thumbnail == nil:
		return nil, faults.Permanent(StageMerge, "merge", "thumbnail output is missing", nil)
	case in.TextJob == nil || in.TextJob.Status != models.TextJobSucceeded:
		return nil, faults.Permanent(StageMerge, "merge", "text detection has not succeeded", nil)
	}

	merged := &models.MergedRecord{
		DocumentKey:   models.DocumentKey(in.Metadata.File.Key),
		ProcessedAt:   f.now(),
		ThumbnailRef:  in.Thumbnail.Ref().String(),
		DocumentRef:   in.Metadata.Asset.String(),
		FileSize:      in.Metadata.File.Size,
		Metadata:      in.Metadata.Metadata,
		ExtractedText: in.TextJob.Text,
		RunID:         in.RunID,
	}

	upload := in.Metadata.File.Ref()
	if err := f.blobs.Delete(ctx, upload); err != nil {
		if !faults.IsNotFound(err) {
			return nil, fmt.Errorf("failed to delete upload %s: %w", upload.String(), err)
		}
		slog.Info("Upload already deleted.", "gcsObject", upload.String())
	}
	return merged, nil
}
