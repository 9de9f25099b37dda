package models

import "time"

// Document is the Firestore record for an uploaded PDF. The upload API writes
// a provisional version (owner, name, file details, tags); the ingestion
// workflow fills in the processed attributes with a partial update.
type Document struct {
	ID                  string      `firestore:"-" json:"id"`
	Owner               string      `firestore:"owner,omitempty" json:"owner,omitempty"`
	Name                string      `firestore:"name,omitempty" json:"name,omitempty"`
	FileDetails         FileDetails `firestore:"fileDetails,omitempty" json:"fileDetails,omitempty"`
	UploadedAt          time.Time   `firestore:"uploadedAt,omitempty" json:"uploadedAt,omitempty"`
	ProcessedAt         *time.Time  `firestore:"processedAt,omitempty" json:"processedAt,omitempty"`
	ThumbnailRef        string      `firestore:"thumbnailRef,omitempty" json:"thumbnailRef,omitempty"`
	DocumentRef         string      `firestore:"documentRef,omitempty" json:"documentRef,omitempty"`
	FileSize            int64       `firestore:"fileSize,omitempty" json:"fileSize,omitempty"`
	Metadata            *Metadata   `firestore:"metadata,omitempty" json:"metadata,omitempty"`
	ExtractedText       string      `firestore:"extractedText,omitempty" json:"extractedText,omitempty"`
	Tags                []string    `firestore:"tags,omitempty" json:"tags,omitempty"`
	WorkflowExecutionID string      `firestore:"workflowExecutionId,omitempty" json:"workflowExecutionId,omitempty"` // For traceability
}

// FileDetails describes the file as it was uploaded by the user.
type FileDetails struct {
	FileName    string `firestore:"fileName,omitempty" json:"fileName,omitempty"`
	ContentType string `firestore:"contentType,omitempty" json:"contentType,omitempty"`
	Encoding    string `firestore:"encoding,omitempty" json:"encoding,omitempty"`
}

// Processed reports whether a previous run already committed this record.
func (d Document) Processed() bool {
	return d.ProcessedAt != nil && !d.ProcessedAt.IsZero()
}

// FieldUpdate is one top-level attribute written by a partial update.
type FieldUpdate struct {
	Path  string
	Value any
}

// RunSummary is the archived form of a finished workflow run.
type RunSummary struct {
	RunID        string              `firestore:"runId" json:"runId"`
	DocumentKey  string              `firestore:"documentKey" json:"documentKey"`
	Bucket       string              `firestore:"bucket" json:"bucket"`
	ObjectKey    string              `firestore:"objectKey" json:"objectKey"`
	Stage        string              `firestore:"stage" json:"stage"`
	FailedStage  string              `firestore:"failedStage,omitempty" json:"failedStage,omitempty"`
	Error        string              `firestore:"error,omitempty" json:"error,omitempty"`
	StartedAt    time.Time           `firestore:"startedAt" json:"startedAt"`
	FinishedAt   time.Time           `firestore:"finishedAt" json:"finishedAt"`
	Compensation *CompensationReport `firestore:"compensation,omitempty" json:"compensation,omitempty"`
}
