package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
)

// stageError ties a failure to the stage that produced it.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stageError) Unwrap() error { return e.err }

// stageFailure attributes err to stage unless it already carries a stage,
// and marks an expired deadline as a timeout.
func stageFailure(stage string, err error) error {
	var se *stageError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, faults.ErrTimeout) {
		err = faults.Wrap(faults.ErrTimeout, stage, "", "deadline exceeded", err)
	}
	return &stageError{stage: stage, err: err}
}

func failedStageOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return ""
}

// CompensatedFailure is returned by Engine.Run for every failed run. The
// compensation handler has already run when the caller sees it.
type CompensatedFailure struct {
	RunID       string
	DocumentKey string
	FailedStage string
	Err         error
	Report      *models.CompensationReport
}

func (f *CompensatedFailure) Error() string {
	return fmt.Sprintf("run %s for %s failed in %s: %v", f.RunID, f.DocumentKey, f.FailedStage, f.Err)
}

func (f *CompensatedFailure) Unwrap() error { return f.Err }
