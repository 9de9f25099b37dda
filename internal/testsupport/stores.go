// Package testsupport provides in-memory fakes of the external collaborators
// shared by the package tests.
package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Lllllllleong/documentingest/internal/faults"
	"github.com/Lllllllleong/documentingest/internal/models"
)

// MemoryBlobStore is a BlobStore backed by a map.
type MemoryBlobStore struct {
	mu      sync.Mutex
	objects map[string]models.Blob

	// FailGet, FailPut and FailDelete inject errors per "bucket/key".
	FailGet    map[string]error
	FailPut    map[string]error
	FailDelete map[string]error

	Deletes []string
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		objects:    make(map[string]models.Blob),
		FailGet:    make(map[string]error),
		FailPut:    make(map[string]error),
		FailDelete: make(map[string]error),
	}
}

// Seed stores an object without going through Put.
func (s *MemoryBlobStore) Seed(ref models.BlobRef, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[ref.String()] = models.Blob{Data: append([]byte(nil), data...), ContentType: contentType}
}

func (s *MemoryBlobStore) Get(_ context.Context, ref models.BlobRef) (*models.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailGet[ref.String()]; err != nil {
		return nil, err
	}
	blob, ok := s.objects[ref.String()]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", ref.String(), faults.ErrNotFound)
	}
	return &models.Blob{Data: append([]byte(nil), blob.Data...), ContentType: blob.ContentType}, nil
}

func (s *MemoryBlobStore) Put(_ context.Context, ref models.BlobRef, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailPut[ref.String()]; err != nil {
		return err
	}
	s.objects[ref.String()] = models.Blob{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (s *MemoryBlobStore) Delete(_ context.Context, ref models.BlobRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes = append(s.Deletes, ref.String())
	if err := s.FailDelete[ref.String()]; err != nil {
		return err
	}
	if _, ok := s.objects[ref.String()]; !ok {
		return fmt.Errorf("object %s: %w", ref.String(), faults.ErrNotFound)
	}
	delete(s.objects, ref.String())
	return nil
}

// Has reports whether the object exists.
func (s *MemoryBlobStore) Has(ref models.BlobRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[ref.String()]
	return ok
}

// MemoryRecordStore is a RecordStore that keeps each record as a JSON object,
// so tests can compare stored records byte for byte.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records map[string]map[string]json.RawMessage

	FailUpdate error
	FailDelete error
	FailQuery  error

	Updates int
	Deletes int
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string]map[string]json.RawMessage)}
}

// Seed stores a provisional record under key.
func (s *MemoryRecordStore) Seed(key string, doc models.Document) {
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		panic(err)
	}
	delete(fields, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = fields
}

func (s *MemoryRecordStore) Update(_ context.Context, key string, updates []models.FieldUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Updates++
	if s.FailUpdate != nil {
		return s.FailUpdate
	}
	fields, ok := s.records[key]
	if !ok {
		return fmt.Errorf("document %s: %w", key, faults.ErrNotFound)
	}
	for _, u := range updates {
		raw, err := json.Marshal(u.Value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", u.Path, err)
		}
		fields[u.Path] = raw
	}
	return nil
}

func (s *MemoryRecordStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes++
	if s.FailDelete != nil {
		return s.FailDelete
	}
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("document %s: %w", key, faults.ErrNotFound)
	}
	delete(s.records, key)
	return nil
}

func (s *MemoryRecordStore) Query(_ context.Context, key string) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailQuery != nil {
		return nil, s.FailQuery
	}
	fields, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc.ID = key
	return []models.Document{doc}, nil
}

// Snapshot returns the stored record as canonical JSON, or nil if absent.
func (s *MemoryRecordStore) Snapshot(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.records[key]
	if !ok {
		return nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		panic(err)
	}
	return raw
}

// Exists reports whether a record is stored under key.
func (s *MemoryRecordStore) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	return ok
}
