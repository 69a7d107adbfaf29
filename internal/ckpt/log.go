package ckpt

import (
	"context"

	"bkpt-go/internal/model"
)

// Log is the ordered, append-only record of checkpoints for one
// repository. Implementations must never reorder or rewrite published
// entries; a reader must always observe a fully-published checkpoint.
type Log interface {
	// List returns all checkpoint summaries in ascending index order.
	// Indices are strictly increasing and contiguous.
	List(ctx context.Context) ([]model.CheckpointSummary, error)

	// Get returns the full checkpoint for index. Fails with
	// ErrCheckpointNotFound if the index does not exist.
	Get(ctx context.Context, index int64) (*model.Checkpoint, error)

	// Append atomically publishes a new checkpoint. The assigned index is
	// the previous maximum plus one, computed and published in a single
	// transaction. Returns the assigned index.
	Append(ctx context.Context, cp *model.Checkpoint) (int64, error)

	// Count returns the number of published checkpoints.
	Count(ctx context.Context) (int, error)

	// Book returns the display metadata recorded for this repository.
	Book(ctx context.Context) (model.BookIdentity, error)

	// Close releases the underlying storage.
	Close() error
}
