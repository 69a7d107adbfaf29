package store

import (
	"context"
	"fmt"
	"sync"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/model"
)

// MemoryStore is an in-memory content store, useful for testing.
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte // checksum -> payload
}

// NewMemoryStore creates an empty in-memory content store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payloads: make(map[string][]byte)}
}

// Put stores data under its checksum. Idempotent.
func (s *MemoryStore) Put(_ context.Context, data []byte) (model.ContentRef, error) {
	ref := model.ContentRef{
		Checksum: ckpt.Checksum(data),
		Size:     int64(len(data)),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payloads[ref.Checksum]; !ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.payloads[ref.Checksum] = cp
	}
	return ref, nil
}

// Get returns the payload for ref, verifying its integrity.
func (s *MemoryStore) Get(_ context.Context, ref model.ContentRef) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.payloads[ref.Checksum]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ckpt.ErrNotFound, ref.Checksum)
	}
	if int64(len(data)) != ref.Size || ckpt.Checksum(data) != ref.Checksum {
		return nil, fmt.Errorf("%w: %s", ckpt.ErrIntegrityMismatch, ref.Checksum)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Has reports whether a payload exists for ref.
func (s *MemoryStore) Has(ref model.ContentRef) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.payloads[ref.Checksum]
	return ok, nil
}

// Corrupt overwrites the stored payload for checksum, for testing
// integrity detection.
func (s *MemoryStore) Corrupt(checksum string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[checksum] = data
}

// Delete removes the stored payload for checksum, for testing missing
// content detection.
func (s *MemoryStore) Delete(checksum string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, checksum)
}

// Len returns the number of distinct payloads stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payloads)
}

// Compile-time check that MemoryStore implements ckpt.ContentStore
var _ ckpt.ContentStore = (*MemoryStore)(nil)
