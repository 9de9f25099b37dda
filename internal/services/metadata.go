package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
)

// MetadataFunction reads the uploaded PDF, records its properties and keeps
// a durable copy in the asset bucket.
type MetadataFunction struct {
	blobs       BlobStore
	assetBucket string
	inspect     func([]byte) (models.Metadata, error)
}

// NewMetadata builds the metadata stage.
func NewMetadata(blobs BlobStore, assetBucket string) *MetadataFunction {
	return &MetadataFunction{blobs: blobs, assetBucket: assetBucket, inspect: InspectPDF}
}

// WithInspector replaces the PDF parser. Used by tests that do not need a real PDF.
func (f *MetadataFunction) WithInspector(inspect func([]byte) (models.Metadata, error)) *MetadataFunction {
	f.inspect = inspect
	return f
}

// Process handles one uploaded object. The asset copy is a plain overwrite so
// a re-delivered upload event lands on the same object.
func (f *MetadataFunction) Process(ctx context.Context, upload models.UploadEvent) (*models.MetadataResult, error) {
	logCtx := slog.With("gcsBucket", upload.Bucket, "gcsObject", upload.Key)

	if !strings.EqualFold(path.Ext(upload.Key), ".pdf") {
		return nil, faults.Permanent(StageMetadata, "validate", fmt.Sprintf("%s is not a PDF", upload.Key), nil)
	}

	blob, err := f.blobs.Get(ctx, upload.Ref())
	if err != nil {
		if faults.IsNotFound(err) {
			return nil, faults.Permanent(StageMetadata, "read", "uploaded object is gone", err)
		}
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	meta, err := f.inspect(blob.Data)
	if err != nil {
		logCtx.Error("Failed to read document properties.", "error", err)
		return nil, err
	}

	contentType := blob.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	asset := models.BlobRef{Bucket: f.assetBucket, Key: upload.Key}
	if err := f.blobs.Put(ctx, asset, blob.Data, contentType); err != nil {
		return nil, fmt.Errorf("failed to write asset copy: %w", err)
	}

	logCtx.Info("Metadata extracted.", "pageCount", meta.PageCount, "asset", asset.String())
	return &models.MetadataResult{
		File: models.FileDescriptor{
			Bucket:      upload.Bucket,
			Key:         upload.Key,
			Size:        int64(len(blob.Data)),
			ContentType: contentType,
		},
		Asset:    asset,
		Metadata: meta,
	}, nil
}
