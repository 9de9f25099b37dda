// Package tesseract implements ocr.Recognizer with a local Tesseract install.
// It needs the tesseract and leptonica libraries at build time.
package tesseract

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/Lllllllleong/documentingest/internal/ocr"
	"github.com/otiai10/gosseract/v2"
)

// Recognizer renders every page and runs Tesseract on each image.
type Recognizer struct {
	blobs     ocr.BlobReader
	renderer  ocr.PageRenderer
	languages []string
}

// New builds a local recognizer. languages defaults to eng.
func New(blobs ocr.BlobReader, renderer ocr.PageRenderer, languages ...string) *Recognizer {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Recognizer{blobs: blobs, renderer: renderer, languages: languages}
}

func (r *Recognizer) Name() string { return "tesseract" }

func (r *Recognizer) Recognize(ctx context.Context, ref models.BlobRef) ([]string, error) {
	blob, err := r.blobs.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	pages, err := r.renderer.Render(ctx, blob.Data, 1, 0)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(r.languages...); err != nil {
		return nil, faults.Permanent("", "tesseract", "unsupported language", err)
	}

	var lines []string
	for i, png := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := client.SetImageFromBytes(png); err != nil {
			return nil, faults.Permanent("", "tesseract", fmt.Sprintf("page %d image rejected", i+1), err)
		}
		text, err := client.Text()
		if err != nil {
			return nil, fmt.Errorf("tesseract failed on page %d: %w", i+1, err)
		}
		lines = append(lines, ocr.SplitLines(text)...)
	}
	return lines, nil
}
