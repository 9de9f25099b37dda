package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/Lllllllleong/documentingest/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateGuard(t *testing.T) {
	processedAt := fixedNow
	tests := []struct {
		name       string
		record     *models.Document
		uploadLeft bool
		want       bool
	}{
		{name: "no record", want: false},
		{name: "provisional record", record: &models.Document{Owner: "user-1"}, uploadLeft: true, want: false},
		{name: "processed and upload deleted", record: &models.Document{Owner: "user-1", ProcessedAt: &processedAt}, want: true},
		{name: "processed but new upload present", record: &models.Document{Owner: "user-1", ProcessedAt: &processedAt}, uploadLeft: true, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			records := testsupport.NewMemoryRecordStore()
			blobs := testsupport.NewMemoryBlobStore()
			if tc.record != nil {
				records.Seed("a1", *tc.record)
			}
			if tc.uploadLeft {
				blobs.Seed(upload.Ref(), []byte("%PDF"), "application/pdf")
			}

			got, err := NewDuplicateGuard(records, blobs).IsDuplicate(context.Background(), upload)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDuplicateGuardPropagatesStoreErrors(t *testing.T) {
	records := testsupport.NewMemoryRecordStore()
	records.FailQuery = errors.New("firestore unavailable")

	_, err := NewDuplicateGuard(records, testsupport.NewMemoryBlobStore()).IsDuplicate(context.Background(), upload)
	assert.ErrorContains(t, err, "firestore unavailable")

	processedAt := fixedNow
	records = testsupport.NewMemoryRecordStore()
	records.Seed("a1", models.Document{ProcessedAt: &processedAt})
	blobs := testsupport.NewMemoryBlobStore()
	blobs.FailGet = map[string]error{upload.Ref().String(): errors.New("permission denied")}

	_, err = NewDuplicateGuard(records, blobs).IsDuplicate(context.Background(), upload)
	assert.ErrorContains(t, err, "permission denied")
}
