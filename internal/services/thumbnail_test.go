package services

import (
	"context"
	"testing"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/Lllllllleong/documentingest/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThumbnailProcess(t *testing.T) {
	blobs := testsupport.NewMemoryBlobStore()
	blobs.Seed(upload.Ref(), []byte("%PDF-1.4"), "application/pdf")
	stage := NewThumbnail(blobs, &testsupport.StubRenderer{Pages: [][]byte{[]byte("page-1")}}, "thumb")

	thumb, err := stage.Process(context.Background(), models.FileDescriptor{Bucket: "up", Key: "a1.pdf"})
	require.NoError(t, err)
	assert.Equal(t, &models.Thumbnail{Bucket: "thumb", Key: "a1-thumb.png"}, thumb)

	stored, err := blobs.Get(context.Background(), thumb.Ref())
	require.NoError(t, err)
	assert.Equal(t, "page-1", string(stored.Data))
	assert.Equal(t, "image/png", stored.ContentType)
}

func TestThumbnailRendererFailures(t *testing.T) {
	tests := []struct {
		name     string
		renderer *testsupport.StubRenderer
	}{
		{name: "crash", renderer: &testsupport.StubRenderer{Err: faults.Permanent("", "ghostscript", "exit status 1", nil)}},
		{name: "no output", renderer: &testsupport.StubRenderer{Pages: [][]byte{}}},
		{name: "empty image", renderer: &testsupport.StubRenderer{Pages: [][]byte{{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := testsupport.NewMemoryBlobStore()
			blobs.Seed(upload.Ref(), []byte("%PDF-1.4"), "application/pdf")

			_, err := NewThumbnail(blobs, tt.renderer, "thumb").Process(context.Background(), models.FileDescriptor{Bucket: "up", Key: "a1.pdf"})
			require.Error(t, err)
			assert.True(t, faults.IsPermanent(err))
			assert.False(t, blobs.Has(models.BlobRef{Bucket: "thumb", Key: "a1-thumb.png"}))
		})
	}
}
