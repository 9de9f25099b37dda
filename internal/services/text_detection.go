package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
)

// TextDetectionFunction submits OCR jobs and checks on them.
type TextDetectionFunction struct {
	detector  TextDetector
	pageDelay time.Duration
	sleep     func(context.Context, time.Duration) error
}

// NewTextDetection builds the OCR stages. pageDelay is the pause between
// result pages, which keeps the provider under its request rate limit.
func NewTextDetection(detector TextDetector, pageDelay time.Duration) *TextDetectionFunction {
	return &TextDetectionFunction{detector: detector, pageDelay: pageDelay, sleep: Sleep}
}

// Submit starts a job for the file and returns it in the pending state.
func (f *TextDetectionFunction) Submit(ctx context.Context, file models.FileDescriptor) (*models.TextJob, error) {
	jobID, err := f.detector.Submit(ctx, file.Ref())
	if err != nil {
		return nil, err
	}
	if jobID == "" {
		return nil, faults.Permanent(StageTextSubmit, "submit", "provider returned an empty job id", nil)
	}
	return &models.TextJob{JobID: jobID, Status: models.TextJobPending}, nil
}

// Poll performs one status check. When the job has succeeded it walks every
// result page and returns the job with the joined, trimmed text; otherwise
// it returns the job with the reported status. A failed job is reported, not
// raised: the poll controller decides what a failure means for the run.
func (f *TextDetectionFunction) Poll(ctx context.Context, job models.TextJob) (*models.TextJob, error) {
	if job.JobID == "" {
		return nil, faults.Permanent(StageTextPoll, "poll", "job id is missing", nil)
	}

	page, err := f.detector.Poll(ctx, job.JobID, "")
	if err != nil {
		return nil, err
	}
	switch page.Status {
	case models.TextJobPending, models.TextJobFailed:
		job.Status = page.Status
		return &job, nil
	case models.TextJobSucceeded:
	default:
		return nil, faults.Permanent(StageTextPoll, "poll", fmt.Sprintf("unknown job status %q", page.Status), nil)
	}

	var text strings.Builder
	appendLines(&text, page.Lines)
	pages := 1
	for cursor := page.NextCursor; cursor != ""; cursor = page.NextCursor {
		if err := f.sleep(ctx, f.pageDelay); err != nil {
			return nil, err
		}
		page, err = f.detector.Poll(ctx, job.JobID, cursor)
		if err != nil {
			return nil, err
		}
		if page.Status != models.TextJobSucceeded {
			return nil, faults.Permanent(StageTextPoll, "paginate", fmt.Sprintf("job changed to %s while reading results", page.Status), nil)
		}
		appendLines(&text, page.Lines)
		pages++
	}

	slog.Debug("Text detection results collected.", "jobId", job.JobID, "pages", pages)
	job.Status = models.TextJobSucceeded
	job.Cursor = ""
	job.Text = strings.TrimSpace(text.String())
	return &job, nil
}

func appendLines(b *strings.Builder, lines []string) {
	for _, line := range lines {
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(line)
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
