package ckpt

import "context"

// Locker serializes mutating operations on one repository across
// processes. Acquire blocks with bounded retries and fails with
// ErrLockContention when they are exhausted. The returned release
// function must be called on every exit path.
type Locker interface {
	Acquire(ctx context.Context) (release func() error, err error)
}
