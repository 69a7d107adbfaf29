package testutil

import (
	"context"
	"sync"

	"bkpt-go/internal/ckpt"
)

// NopLocker satisfies ckpt.Locker without any real locking. Use in
// tests where cross-process exclusion is irrelevant.
type NopLocker struct {
	mu       sync.Mutex
	acquired int
	released int
}

func NewNopLocker() *NopLocker { return &NopLocker{} }

func (l *NopLocker) Acquire(_ context.Context) (func() error, error) {
	l.mu.Lock()
	l.acquired++
	l.mu.Unlock()
	return func() error {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
		return nil
	}, nil
}

// Balanced reports whether every Acquire was matched by a release.
func (l *NopLocker) Balanced() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired == l.released && l.acquired > 0
}

// ContendedLocker always fails with ErrLockContention.
type ContendedLocker struct{}

func (ContendedLocker) Acquire(_ context.Context) (func() error, error) {
	return nil, ckpt.ErrLockContention
}

var (
	_ ckpt.Locker = (*NopLocker)(nil)
	_ ckpt.Locker = ContendedLocker{}
)
