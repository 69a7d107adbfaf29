package testutil

import (
	"context"
	"sync"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/model"
	"bkpt-go/internal/store"
)

// NewTestStore creates a new in-memory content store for testing.
func NewTestStore() *store.MemoryStore {
	return store.NewMemoryStore()
}

// FailingStore wraps a ContentStore and fails Put once a configured
// number of successful calls has passed. Used to inject I/O failures
// mid-write and assert the repository is left untouched.
type FailingStore struct {
	Inner ckpt.ContentStore
	Err   error

	mu        sync.Mutex
	succeed   int
	putsSoFar int
}

// NewFailingStore creates a FailingStore that lets succeed Put calls
// through before failing every later one with err.
func NewFailingStore(inner ckpt.ContentStore, succeed int, err error) *FailingStore {
	return &FailingStore{Inner: inner, Err: err, succeed: succeed}
}

func (s *FailingStore) Put(ctx context.Context, data []byte) (model.ContentRef, error) {
	s.mu.Lock()
	s.putsSoFar++
	fail := s.putsSoFar > s.succeed
	s.mu.Unlock()

	if fail {
		return model.ContentRef{}, s.Err
	}
	return s.Inner.Put(ctx, data)
}

func (s *FailingStore) Get(ctx context.Context, ref model.ContentRef) ([]byte, error) {
	return s.Inner.Get(ctx, ref)
}

func (s *FailingStore) Has(ref model.ContentRef) (bool, error) {
	return s.Inner.Has(ref)
}

var _ ckpt.ContentStore = (*FailingStore)(nil)
