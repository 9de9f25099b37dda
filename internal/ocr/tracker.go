package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/google/uuid"
)

const (
	defaultPageSize   = 1000
	defaultJobTimeout = 25 * time.Minute
	defaultRetention  = time.Hour
)

// Tracker runs recognition jobs in the background and serves their results.
// Jobs are detached from the submitting request: a caller that gives up does
// not cancel the job, it simply stops polling.
type Tracker struct {
	recognizer Recognizer
	pageSize   int
	jobTimeout time.Duration
	retention  time.Duration
	now        func() time.Time

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	status     models.TextJobStatus
	lines      []string
	err        error
	finishedAt time.Time
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithPageSize sets how many lines a single Poll returns.
func WithPageSize(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

// WithJobTimeout bounds a single recognition job.
func WithJobTimeout(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.jobTimeout = d
		}
	}
}

// WithRetention sets how long finished jobs stay pollable.
func WithRetention(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.retention = d
		}
	}
}

// NewTracker wraps a recognizer.
func NewTracker(recognizer Recognizer, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		recognizer: recognizer,
		pageSize:   defaultPageSize,
		jobTimeout: defaultJobTimeout,
		retention:  defaultRetention,
		now:        time.Now,
		jobs:       make(map[string]*job),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Submit starts recognition of ref and returns the job id.
func (t *Tracker) Submit(ctx context.Context, ref models.BlobRef) (string, error) {
	if ref.Bucket == "" || ref.Key == "" {
		return "", faults.Permanent("", "submit", "blob reference is incomplete", nil)
	}
	id := uuid.NewString()

	t.mu.Lock()
	t.reapLocked()
	t.jobs[id] = &job{status: models.TextJobPending}
	t.mu.Unlock()

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.jobTimeout)
	go func() {
		defer cancel()
		lines, err := t.recognizer.Recognize(jobCtx, ref)
		t.finish(id, lines, err)
	}()

	slog.Info("Text detection job submitted.", "jobId", id, "provider", t.recognizer.Name(), "object", ref.String())
	return id, nil
}

// Poll reports the state of a job. For a succeeded job it returns the page of
// lines starting at cursor and, when more remain, the cursor of the next page.
func (t *Tracker) Poll(ctx context.Context, jobID, cursor string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[jobID]
	if !ok {
		return Page{}, faults.Permanent("", "poll", fmt.Sprintf("unknown job %s", jobID), faults.ErrNotFound)
	}

	switch j.status {
	case models.TextJobPending:
		return Page{Status: models.TextJobPending}, nil
	case models.TextJobFailed:
		return Page{Status: models.TextJobFailed}, nil
	}

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(j.lines) {
			return Page{}, faults.Permanent("", "poll", fmt.Sprintf("invalid cursor %q", cursor), err)
		}
		offset = n
	}
	end := min(offset+t.pageSize, len(j.lines))

	page := Page{
		Status: models.TextJobSucceeded,
		Lines:  append([]string(nil), j.lines[offset:end]...),
	}
	if end < len(j.lines) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (t *Tracker) finish(id string, lines []string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return
	}
	j.finishedAt = t.now()
	if err != nil {
		j.status = models.TextJobFailed
		j.err = err
		slog.Error("Text detection job failed.", "jobId", id, "provider", t.recognizer.Name(), "error", err)
		return
	}
	j.status = models.TextJobSucceeded
	j.lines = lines
	slog.Info("Text detection job finished.", "jobId", id, "lines", len(lines))
}

// reapLocked drops finished jobs older than the retention window.
func (t *Tracker) reapLocked() {
	cutoff := t.now().Add(-t.retention)
	for id, j := range t.jobs {
		if j.status.Terminal() && j.finishedAt.Before(cutoff) {
			delete(t.jobs, id)
		}
	}
}
