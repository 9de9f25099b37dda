package services

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
)

// CommitFunction writes the merged record with a partial update.
type CommitFunction struct {
	records RecordStore
}

// NewCommit builds the commit stage.
func NewCommit(records RecordStore) *CommitFunction {
	return &CommitFunction{records: records}
}

// Process applies the update. Repeating it with the same record leaves the
// stored document unchanged.
func (f *CommitFunction) Process(ctx context.Context, merged models.MergedRecord) error {
	if merged.DocumentKey == "" {
		return faults.Permanent(StageCommit, "update", "document key is empty", nil)
	}
	if err := f.records.Update(ctx, merged.DocumentKey, merged.Updates()); err != nil {
		if faults.IsNotFound(err) {
			return faults.Permanent(StageCommit, "update", "provisional record does not exist", err)
		}
		return fmt.Errorf("failed to commit record %s: %w", merged.DocumentKey, err)
	}
	return nil
}
