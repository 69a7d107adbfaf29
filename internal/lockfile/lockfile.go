package lockfile

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/config"
)

// Flock is a repository-scoped exclusive lock backed by an advisory
// file lock, so two editor instances checkpointing the same book cannot
// interleave. Acquisition retries a bounded number of times before
// surfacing ErrLockContention.
type Flock struct {
	path     string
	attempts int
	delay    time.Duration
}

// New creates a Flock for the lock file at path.
func New(path string, cfg config.LockConfig) *Flock {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 10
	}
	delay := time.Duration(cfg.RetryDelayMS) * time.Millisecond
	if delay <= 0 {
		delay = 150 * time.Millisecond
	}
	return &Flock{path: path, attempts: attempts, delay: delay}
}

// Acquire takes the exclusive lock, retrying with a fixed delay. The
// returned release function is safe to call exactly once and must run
// on every exit path.
func (l *Flock) Acquire(ctx context.Context) (func() error, error) {
	fl := flock.New(l.path)

	for i := 0; i < l.attempts; i++ {
		locked, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquiring repository lock: %w", err)
		}
		if locked {
			return fl.Unlock, nil
		}
		if i == l.attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.delay):
		}
	}

	return nil, fmt.Errorf("%w: %s", ckpt.ErrLockContention, l.path)
}

// Compile-time check that Flock implements ckpt.Locker
var _ ckpt.Locker = (*Flock)(nil)
