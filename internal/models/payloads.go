package models

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// These structs are the typed outputs passed between the workflow stages.
// Each one is produced once and stored under its own key in the run payload.

// GCSEvent is the payload of a storage object-finalized event.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        string `json:"size,omitempty"` // GCS reports sizes as decimal strings.
}

// UploadEvent tells the engine a new object landed in the upload bucket.
type UploadEvent struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Ref returns the blob reference of the uploaded object.
func (e UploadEvent) Ref() BlobRef {
	return BlobRef{Bucket: e.Bucket, Key: e.Key}
}

// DocumentKey derives the record key from an object key: the base name
// without the .pdf extension.
func DocumentKey(objectKey string) string {
	base := path.Base(objectKey)
	if strings.EqualFold(path.Ext(base), ".pdf") {
		base = base[:len(base)-len(".pdf")]
	}
	return base
}

// ThumbnailKey is the object name of the page-one image for a document.
func ThumbnailKey(objectKey string) string {
	return fmt.Sprintf("%s-thumb.png", DocumentKey(objectKey))
}

// FileDescriptor points at the uploaded file.
type FileDescriptor struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// Ref returns the blob reference of the described file.
func (f FileDescriptor) Ref() BlobRef {
	return BlobRef{Bucket: f.Bucket, Key: f.Key}
}

// Metadata holds the document properties read from the PDF.
type Metadata struct {
	Author       string `firestore:"author,omitempty" json:"author,omitempty"`
	Title        string `firestore:"title,omitempty" json:"title,omitempty"`
	Keywords     string `firestore:"keywords,omitempty" json:"keywords,omitempty"`
	CreatedDate  string `firestore:"createdDate,omitempty" json:"createdDate,omitempty"`
	ModifiedDate string `firestore:"modifiedDate,omitempty" json:"modifiedDate,omitempty"`
	PageCount    int    `firestore:"pageCount" json:"pageCount"`
}

// MetadataResult is the output of the metadata stage.
type MetadataResult struct {
	File     FileDescriptor `json:"file"`
	Asset    BlobRef        `json:"asset"`
	Metadata Metadata       `json:"metadata"`
}

// Thumbnail is the output of the thumbnail stage.
type Thumbnail struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Ref returns the blob reference of the thumbnail image.
func (t Thumbnail) Ref() BlobRef {
	return BlobRef{Bucket: t.Bucket, Key: t.Key}
}

// TextJobStatus is the lifecycle state of an asynchronous OCR job.
type TextJobStatus string

const (
	TextJobPending   TextJobStatus = "PENDING"
	TextJobSucceeded TextJobStatus = "SUCCEEDED"
	TextJobFailed    TextJobStatus = "FAILED"
)

// Terminal reports whether the job will not change state again.
func (s TextJobStatus) Terminal() bool {
	return s == TextJobSucceeded || s == TextJobFailed
}

// TextJob tracks an OCR job from submission to its terminal state.
type TextJob struct {
	JobID  string        `json:"jobId"`
	Status TextJobStatus `json:"status"`
	Cursor string        `json:"cursor,omitempty"`
	Text   string        `json:"text,omitempty"`
}

// MergeInput gathers the stage outputs RecordMerge combines.
type MergeInput struct {
	Metadata  *MetadataResult
	Thumbnail *Thumbnail
	TextJob   *TextJob
	RunID     string
}

// MergedRecord is the update payload committed to the document record.
type MergedRecord struct {
	DocumentKey   string    `json:"documentKey"`
	ProcessedAt   time.Time `json:"processedAt"`
	ThumbnailRef  string    `json:"thumbnailRef"`
	DocumentRef   string    `json:"documentRef"`
	FileSize      int64     `json:"fileSize"`
	Metadata      Metadata  `json:"metadata"`
	ExtractedText string    `json:"extractedText"`
	RunID         string    `json:"runId"`
}

// Updates lists the attributes RecordCommit writes. Attributes not listed
// here (owner, name, tags, ...) are left untouched.
func (m MergedRecord) Updates() []FieldUpdate {
	return []FieldUpdate{
		{Path: "processedAt", Value: m.ProcessedAt},
		{Path: "thumbnailRef", Value: m.ThumbnailRef},
		{Path: "documentRef", Value: m.DocumentRef},
		{Path: "fileSize", Value: m.FileSize},
		{Path: "metadata", Value: m.Metadata},
		{Path: "extractedText", Value: m.ExtractedText},
		{Path: "workflowExecutionId", Value: m.RunID},
	}
}

// Failure is the context handed to the compensation handler.
type Failure struct {
	RunID       string
	Upload      UploadEvent
	FailedStage string
	Err         error
	Metadata    *MetadataResult
	Thumbnail   *Thumbnail
}

// CompensationReport records what the compensation handler cleaned up.
type CompensationReport struct {
	DocumentKey string   `firestore:"documentKey" json:"documentKey"`
	Deleted     []string `firestore:"deleted,omitempty" json:"deleted,omitempty"`
	Missing     []string `firestore:"missing,omitempty" json:"missing,omitempty"`
	Errors      []string `firestore:"errors,omitempty" json:"errors,omitempty"`
	Published   bool     `firestore:"published" json:"published"`
}

// ProcessingFailedDetail is the body of the terminal failure event.
type ProcessingFailedDetail struct {
	Key      string `json:"key"`
	Owner    string `json:"owner"`
	Filename string `json:"filename"`
}

// ProcessingSucceededDetail is the body of the success event.
type ProcessingSucceededDetail struct {
	Key          string `json:"key"`
	DocumentRef  string `json:"documentRef"`
	ThumbnailRef string `json:"thumbnailRef"`
	RunID        string `json:"runId"`
}

// CommentAddedDetail is published by the comments API when a user comments.
type CommentAddedDetail struct {
	DocumentID string `json:"documentId"`
	CommentID  string `json:"commentId"`
}

// Event types carried by the processing event bus.
const (
	EventProcessingFailed    = "ProcessingFailed"
	EventProcessingSucceeded = "ProcessingSucceeded"
	EventCommentAdded        = "CommentAdded"
)
