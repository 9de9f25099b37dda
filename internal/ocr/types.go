// Package ocr provides the asynchronous text detection provider used by the
// ingestion workflow. A Tracker turns any synchronous Recognizer into a
// job-based API: Submit returns a job id immediately, Poll reports the job's
// status and, once it succeeded, serves the recognized lines in pages
// addressed by a continuation cursor.
package ocr

import (
	"context"
	"strings"

	"github.com/Lllllllleong/documentingest/internal/models"
)

// Page is one status-check response.
type Page struct {
	Status     models.TextJobStatus
	Lines      []string
	NextCursor string
}

// Recognizer extracts the text lines of a stored PDF.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, ref models.BlobRef) ([]string, error)
}

// BlobReader is the read side of the blob store.
type BlobReader interface {
	Get(ctx context.Context, ref models.BlobRef) (*models.Blob, error)
}

// PageRenderer rasterizes PDF pages to PNG images.
type PageRenderer interface {
	Render(ctx context.Context, pdf []byte, firstPage, lastPage int) ([][]byte, error)
}

// SplitLines breaks recognized text into trimmed, non-empty lines.
func SplitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
