package workflow

import (
	"fmt"
	"time"

	"github.com/Lllllllleong/documentingest/internal/models"
	"github.com/google/uuid"
)

// Stage is the position of a run in the transition table.
type Stage string

const (
	StageStarted      Stage = "STARTED"
	StageMetadataDone Stage = "METADATA_DONE"
	StageParallel     Stage = "PARALLEL"
	StageMerged       Stage = "MERGED"
	StageCommitted    Stage = "COMMITTED"
	StageCompensating Stage = "COMPENSATING"
	StageFailed       Stage = "FAILED"
	StageSucceeded    Stage = "SUCCEEDED"
)

// Terminal reports whether the run is finished.
func (s Stage) Terminal() bool {
	return s == StageSucceeded || s == StageFailed
}

// Payload keys. Each is written once.
const (
	KeyMetadata  = "metadata"
	KeyThumbnail = "thumbnail"
	KeyTextJob   = "textJob"
	KeyMerged    = "mergedRecord"
)

// Run is the state of one execution. It is owned by the goroutine calling
// Engine.Run; the parallel branches never touch it.
type Run struct {
	RunID       string
	DocumentKey string
	Upload      models.UploadEvent
	Stage       Stage
	StartedAt   time.Time
	Deadline    time.Time

	payload map[string]any
	visited map[Stage]bool
}

func newRun(upload models.UploadEvent, now time.Time, timeout time.Duration) *Run {
	return &Run{
		RunID:       uuid.NewString(),
		DocumentKey: models.DocumentKey(upload.Key),
		Upload:      upload,
		Stage:       StageStarted,
		StartedAt:   now,
		Deadline:    now.Add(timeout),
		payload:     make(map[string]any),
		visited:     map[Stage]bool{StageStarted: true},
	}
}

// Put adds a stage output. Overwriting an existing key is refused.
func (r *Run) Put(key string, value any) error {
	if _, exists := r.payload[key]; exists {
		return fmt.Errorf("payload key %q already written", key)
	}
	r.payload[key] = value
	return nil
}

// Keys lists the payload keys written so far.
func (r *Run) Keys() []string {
	keys := make([]string, 0, len(r.payload))
	for k := range r.payload {
		keys = append(keys, k)
	}
	return keys
}

// payloadValue returns the output stored under key, if it has type T.
func payloadValue[T any](r *Run, key string) (T, bool) {
	v, ok := r.payload[key].(T)
	return v, ok
}

// advance moves the run along the success or failure edge of its current
// stage. Entering a stage twice is refused.
func (r *Run) advance(ok bool) error {
	t, found := transitions[r.Stage]
	if !found {
		return fmt.Errorf("stage %s has no outgoing transition", r.Stage)
	}
	next := t.onSuccess
	if !ok {
		next = t.onFailure
	}
	if next == "" {
		return fmt.Errorf("stage %s has no %s transition", r.Stage, edgeName(ok))
	}
	if r.visited[next] {
		return fmt.Errorf("stage %s already entered", next)
	}
	r.visited[next] = true
	r.Stage = next
	return nil
}

func edgeName(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
