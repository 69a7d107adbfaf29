package testutil

import (
	"testing"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/logdb"
	"bkpt-go/internal/store"
)

// TestService bundles a Service with its fakes so tests can reach
// behind the interfaces.
type TestService struct {
	Service *ckpt.Service
	Store   *store.MemoryStore
	Log     *logdb.SQLiteLog
	Locker  *NopLocker
	Clock   *StubClock
}

// NewTestService wires a Service over an in-memory store, an in-memory
// checkpoint log, a no-op locker and a fixed clock.
func NewTestService(t *testing.T) *TestService {
	t.Helper()

	st := NewTestStore()
	log := NewTestLog(t)
	locker := NewNopLocker()
	clock := FixedClock()

	return &TestService{
		Service: ckpt.NewService(log, st, locker, ckpt.NewNopLogger(), clock),
		Store:   st,
		Log:     log,
		Locker:  locker,
		Clock:   clock,
	}
}
