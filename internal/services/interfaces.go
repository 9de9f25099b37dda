package services

import (
	"context"

	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/Lllllllleong/documentingest/internal/ocr"
)

// BlobStore is the object storage contract. Get and Delete return an error
// wrapping faults.ErrNotFound for a missing object.
type BlobStore interface {
	Get(ctx context.Context, ref models.BlobRef) (*models.Blob, error)
	Put(ctx context.Context, ref models.BlobRef, data []byte, contentType string) error
	Delete(ctx context.Context, ref models.BlobRef) error
}

// RecordStore is the document record contract.
type RecordStore interface {
	Update(ctx context.Context, key string, updates []models.FieldUpdate) error
	Delete(ctx context.Context, key string) error
	Query(ctx context.Context, key string) ([]models.Document, error)
}

// TextDetector is the asynchronous OCR provider.
type TextDetector interface {
	Submit(ctx context.Context, ref models.BlobRef) (string, error)
	Poll(ctx context.Context, jobID, cursor string) (ocr.Page, error)
}

// EventPublisher emits processing events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, detailType string, detail any) error
}

// PageRenderer rasterizes PDF pages.
type PageRenderer interface {
	Render(ctx context.Context, pdf []byte, firstPage, lastPage int) ([][]byte, error)
}
