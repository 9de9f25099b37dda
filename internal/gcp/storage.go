package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/cenkalti/backoff/v5"
	"google.golang.org/api/googleapi"
)

const (
	uploadMaxRetries     = 4
	uploadInitialBackoff = 1 * time.Second
	uploadWriteTimeout   = 50 * time.Second
)

// BlobStore reads, writes and deletes objects in Cloud Storage.
type BlobStore struct {
	client *storage.Client
}

// NewBlobStore wraps an existing storage client. The caller owns the client.
func NewBlobStore(client *storage.Client) *BlobStore {
	return &BlobStore{client: client}
}

// Get downloads an object. A missing object yields faults.ErrNotFound.
func (s *BlobStore) Get(ctx context.Context, ref models.BlobRef) (*models.Blob, error) {
	reader, err := s.client.Bucket(ref.Bucket).Object(ref.Key).NewReader(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object gs://%s/%s: %w", ref.Bucket, ref.Key, faults.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", ref.Bucket, ref.Key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object gs://%s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return &models.Blob{Data: data, ContentType: reader.Attrs.ContentType}, nil
}

// Put writes an object, overwriting any previous version. Failed uploads are
// retried with a doubling backoff; a request GCS rejects outright (4xx other
// than timeout and throttling) is returned at once as a permanent error.
func (s *BlobStore) Put(ctx context.Context, ref models.BlobRef, data []byte, contentType string) error {
	b := &backoff.ExponentialBackOff{
		InitialInterval: uploadInitialBackoff,
		Multiplier:      2,
		MaxInterval:     30 * time.Second,
	}
	b.Reset()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.write(ctx, ref, data, contentType)
		if err != nil && isRejected(err) {
			return struct{}{}, backoff.Permanent(faults.Permanent("", "upload", "request rejected by storage", err))
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uploadMaxRetries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			slog.Warn(
				"Upload failed, will retry.",
				"gcsObject", ref.String(),
				"backoff", wait.String(),
				"error", err,
			)
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if faults.IsPermanent(err) {
		slog.Error("Upload rejected.", "gcsObject", ref.String(), "error", err)
		return fmt.Errorf("upload for %s: %w", ref, err)
	}
	if err != nil {
		slog.Error("Upload failed after all retries.", "gcsObject", ref.String(), "error", err)
		return fmt.Errorf("upload for %s failed after all retries: %w", ref, err)
	}
	return nil
}

func (s *BlobStore) write(ctx context.Context, ref models.BlobRef, data []byte, contentType string) error {
	writeCtx, cancel := context.WithTimeout(ctx, uploadWriteTimeout)
	defer cancel()

	writer := s.client.Bucket(ref.Bucket).Object(ref.Key).NewWriter(writeCtx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("io.Copy to GCS failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
	}
	return nil
}

// Delete removes an object. A missing object yields faults.ErrNotFound.
func (s *BlobStore) Delete(ctx context.Context, ref models.BlobRef) error {
	err := s.client.Bucket(ref.Bucket).Object(ref.Key).Delete(ctx)
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("object gs://%s/%s: %w", ref.Bucket, ref.Key, faults.ErrNotFound)
	}
	return fmt.Errorf("failed to delete gs://%s/%s: %w", ref.Bucket, ref.Key, err)
}

// isRejected reports whether GCS refused the request itself, so sending it
// again cannot succeed.
func isRejected(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	switch gerr.Code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return gerr.Code >= 400 && gerr.Code < 500
}

func isNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
