package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
)

// DuplicateGuard detects redelivered upload events. Storage notifications
// are at-least-once, so an event can arrive again after its run committed
// and deleted the upload.
type DuplicateGuard struct {
	records RecordStore
	blobs   BlobStore
}

// NewDuplicateGuard builds a guard over the record and blob stores.
func NewDuplicateGuard(records RecordStore, blobs BlobStore) *DuplicateGuard {
	return &DuplicateGuard{records: records, blobs: blobs}
}

// IsDuplicate reports whether the upload was already ingested: its record
// carries processed attributes and the upload object is gone. Anything
// else, including a missing record, is left for the workflow to judge.
func (g *DuplicateGuard) IsDuplicate(ctx context.Context, upload models.UploadEvent) (bool, error) {
	key := models.DocumentKey(upload.Key)
	docs, err := g.records.Query(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) == 0 || !docs[0].Processed() {
		return false, nil
	}

	if _, err := g.blobs.Get(ctx, upload.Ref()); err != nil {
		if faults.IsNotFound(err) {
			slog.Info("Duplicate upload event detected. Skipping.", "documentKey", key, "object", upload.Ref().String())
			return true, nil
		}
		return false, fmt.Errorf("failed to check upload object: %w", err)
	}
	// A fresh upload reusing a processed key is reprocessed.
	return false, nil
}
