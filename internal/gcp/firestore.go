package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// RecordStore keeps document records in a Firestore collection keyed by
// document key.
type RecordStore struct {
	client     *firestore.Client
	collection string
}

// NewRecordStore binds a record store to a collection.
func NewRecordStore(client *firestore.Client, collection string) *RecordStore {
	return &RecordStore{client: client, collection: collection}
}

// Update applies a partial update. Fields not listed are preserved.
func (s *RecordStore) Update(ctx context.Context, key string, updates []models.FieldUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	fsUpdates := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		fsUpdates = append(fsUpdates, firestore.Update{Path: u.Path, Value: u.Value})
	}
	if _, err := s.client.Collection(s.collection).Doc(key).Update(ctx, fsUpdates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("document %s: %w", key, faults.ErrNotFound)
		}
		return fmt.Errorf("failed to update document %s: %w", key, err)
	}
	return nil
}

// Delete removes a record. A missing record yields faults.ErrNotFound.
func (s *RecordStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Collection(s.collection).Doc(key).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("document %s: %w", key, faults.ErrNotFound)
		}
		return fmt.Errorf("failed to delete document %s: %w", key, err)
	}
	return nil
}

// Query returns the records stored under key; an empty slice when none exist.
func (s *RecordStore) Query(ctx context.Context, key string) ([]models.Document, error) {
	snap, err := s.client.Collection(s.collection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query document %s: %w", key, err)
	}
	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", key, err)
	}
	doc.ID = snap.Ref.ID
	return []models.Document{doc}, nil
}

// RunArchive stores summaries of finished workflow runs.
type RunArchive struct {
	client     *firestore.Client
	collection string
}

// NewRunArchive binds a run archive to a collection.
func NewRunArchive(client *firestore.Client, collection string) *RunArchive {
	return &RunArchive{client: client, collection: collection}
}

// Archive writes the summary under its run id. Re-archiving overwrites.
func (a *RunArchive) Archive(ctx context.Context, summary models.RunSummary) error {
	if _, err := a.client.Collection(a.collection).Doc(summary.RunID).Set(ctx, summary); err != nil {
		return fmt.Errorf("failed to archive run %s: %w", summary.RunID, err)
	}
	return nil
}
