package store

import (
	"context"
	"sync"
)

// MemoryMetadataStore is a map-backed MetadataStore for local runs and tests.
type MemoryMetadataStore struct {
	mu      sync.RWMutex
	records map[string]VideoRecord
}

func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{records: make(map[string]VideoRecord)}
}

func (s *MemoryMetadataStore) Create(ctx context.Context, record VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.VideoID]; ok {
		return ErrAlreadyExists
	}
	s.records[record.VideoID] = record
	return nil
}

func (s *MemoryMetadataStore) Get(ctx context.Context, videoID string) (VideoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[videoID]
	if !ok {
		return VideoRecord{}, ErrNotFound
	}
	return record, nil
}

func (s *MemoryMetadataStore) UpdateTerminal(ctx context.Context, videoID string, status string, length int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[videoID]
	if !ok {
		return ErrNotFound
	}
	record.Status = status
	record.Length = length
	s.records[videoID] = record
	return nil
}

func (s *MemoryMetadataStore) Delete(ctx context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[videoID]; !ok {
		return ErrNotFound
	}
	delete(s.records, videoID)
	return nil
}

// MemoryBlobStore is a map-backed BlobStore for local runs and tests.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (s *MemoryBlobStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[key] = stored
	return nil
}

func (s *MemoryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}
