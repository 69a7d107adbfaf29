package ckpt

import "errors"

// Sentinel errors for the checkpoint subsystem. Callers match them with
// errors.Is; every error surfaced by the service wraps one of these
// together with the underlying cause.
var (
	// ErrNotFound means a referenced content payload is missing from the
	// content store (repository corruption).
	ErrNotFound = errors.New("content not found")

	// ErrIntegrityMismatch means a stored payload's recomputed checksum
	// disagrees with its reference (on-disk corruption).
	ErrIntegrityMismatch = errors.New("content integrity mismatch")

	// ErrCheckpointNotFound means the requested checkpoint index does not
	// exist in this repository.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrCheckpointFailed means a checkpoint write failed before publish.
	// The repository is guaranteed unchanged.
	ErrCheckpointFailed = errors.New("checkpoint failed")

	// ErrCheckoutFailed means a checkout failed before the swap. The
	// working tree is guaranteed unchanged.
	ErrCheckoutFailed = errors.New("checkout failed")

	// ErrNothingSelected means a management operation was invoked without
	// a valid target.
	ErrNothingSelected = errors.New("nothing selected")

	// ErrLockContention means another process or thread holds the
	// repository lock and bounded retries were exhausted.
	ErrLockContention = errors.New("repository is locked by another process")

	// ErrEmptyRepository means the repository has no checkpoints yet.
	ErrEmptyRepository = errors.New("no checkpoints found")
)
