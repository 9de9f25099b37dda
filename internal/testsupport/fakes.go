package testsupport

import (
	"context"
	"errors"
	"sync"

	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/Lllllllleong/documentingest/internal/ocr"
)

// PollStep is one scripted answer of ScriptedDetector.Poll.
type PollStep struct {
	Page ocr.Page
	Err  error
}

// Pending is a PollStep reporting a running job.
func Pending() PollStep {
	return PollStep{Page: ocr.Page{Status: models.TextJobPending}}
}

// Succeeded is a PollStep carrying one page of results.
func Succeeded(next string, lines ...string) PollStep {
	return PollStep{Page: ocr.Page{Status: models.TextJobSucceeded, Lines: lines, NextCursor: next}}
}

// Failed is a PollStep reporting a failed job.
func Failed() PollStep {
	return PollStep{Page: ocr.Page{Status: models.TextJobFailed}}
}

// ScriptedDetector answers Poll calls from a script, one step per call. The
// last step repeats once the script is exhausted.
type ScriptedDetector struct {
	mu        sync.Mutex
	JobID     string
	SubmitErr error
	Script    []PollStep
	// BeforePoll runs before each Poll answer; a non-nil error is returned.
	BeforePoll func(ctx context.Context) error

	Submitted []models.BlobRef
	Cursors   []string
}

func (d *ScriptedDetector) Submit(_ context.Context, ref models.BlobRef) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Submitted = append(d.Submitted, ref)
	if d.SubmitErr != nil {
		return "", d.SubmitErr
	}
	if d.JobID == "" {
		return "job-1", nil
	}
	return d.JobID, nil
}

func (d *ScriptedDetector) Poll(ctx context.Context, _ string, cursor string) (ocr.Page, error) {
	if d.BeforePoll != nil {
		if err := d.BeforePoll(ctx); err != nil {
			return ocr.Page{}, err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Cursors = append(d.Cursors, cursor)
	if len(d.Script) == 0 {
		return ocr.Page{}, errors.New("scripted detector has no steps")
	}
	step := d.Script[0]
	if len(d.Script) > 1 {
		d.Script = d.Script[1:]
	}
	return step.Page, step.Err
}

// Polls returns how many status checks were made.
func (d *ScriptedDetector) Polls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Cursors)
}

// PublishedEvent is one event captured by RecordingPublisher.
type PublishedEvent struct {
	Type   string
	Detail any
}

// RecordingPublisher keeps every published event.
type RecordingPublisher struct {
	mu     sync.Mutex
	Err    error
	Events []PublishedEvent
}

func (p *RecordingPublisher) Publish(_ context.Context, detailType string, detail any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, PublishedEvent{Type: detailType, Detail: detail})
	return nil
}

// OfType returns the captured events of one type.
func (p *RecordingPublisher) OfType(detailType string) []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PublishedEvent
	for _, e := range p.Events {
		if e.Type == detailType {
			out = append(out, e)
		}
	}
	return out
}

// StubRenderer returns fixed pages or a fixed error.
type StubRenderer struct {
	Pages [][]byte
	Err   error
	// Hook runs first; a non-nil error is returned.
	Hook func(ctx context.Context) error
}

// PNG is a stand-in page image.
var PNG = []byte("\x89PNG\r\n\x1a\nstub")

func (r *StubRenderer) Render(ctx context.Context, _ []byte, _, _ int) ([][]byte, error) {
	if r.Hook != nil {
		if err := r.Hook(ctx); err != nil {
			return nil, err
		}
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Pages == nil {
		return [][]byte{PNG}, nil
	}
	return r.Pages, nil
}
