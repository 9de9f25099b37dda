package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
)

// ThumbnailFunction renders page one of the upload to a PNG.
type ThumbnailFunction struct {
	blobs    BlobStore
	renderer PageRenderer
	bucket   string
}

// NewThumbnail builds the thumbnail stage.
func NewThumbnail(blobs BlobStore, renderer PageRenderer, bucket string) *ThumbnailFunction {
	return &ThumbnailFunction{blobs: blobs, renderer: renderer, bucket: bucket}
}

func (f *ThumbnailFunction) Process(ctx context.Context, file models.FileDescriptor) (*models.Thumbnail, error) {
	blob, err := f.blobs.Get(ctx, file.Ref())
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	pages, err := f.renderer.Render(ctx, blob.Data, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 || len(pages[0]) == 0 {
		return nil, faults.Permanent(StageThumbnail, "render", "renderer returned no image", nil)
	}

	thumb := models.Thumbnail{Bucket: f.bucket, Key: models.ThumbnailKey(file.Key)}
	if err := f.blobs.Put(ctx, thumb.Ref(), pages[0], "image/png"); err != nil {
		return nil, fmt.Errorf("failed to write thumbnail: %w", err)
	}

	slog.Info("Thumbnail rendered.", "gcsObject", file.Key, "thumbnail", thumb.Ref().String(), "bytes", len(pages[0]))
	return &thumb, nil
}
