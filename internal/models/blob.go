package models

import "fmt"

// BlobRef addresses an object in a bucket.
type BlobRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// String renders the reference as bucket/key.
func (r BlobRef) String() string {
	return fmt.Sprintf("%s/%s", r.Bucket, r.Key)
}

// URI renders the reference as a gs:// URI.
func (r BlobRef) URI() string {
	return fmt.Sprintf("gs://%s/%s", r.Bucket, r.Key)
}

// Blob is an object's content together with its declared content type.
type Blob struct {
	Data        []byte
	ContentType string
}
