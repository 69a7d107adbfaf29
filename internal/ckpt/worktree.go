package ckpt

import (
	"context"

	"bkpt-go/internal/model"
)

// WorkingTree is the live file set of the currently open book. The
// subsystem only ever reads it wholesale or replaces it wholesale; it
// never owns it partially.
type WorkingTree interface {
	// Snapshot enumerates every (path, bytes) pair of the working tree.
	// The returned slice is a point-in-time copy.
	Snapshot(ctx context.Context) ([]model.WorkingFile, error)

	// Replace swaps the entire working tree for files in a single
	// all-or-nothing step. Files present before but absent from files are
	// removed. On error the previous tree is left intact.
	Replace(ctx context.Context, files []model.WorkingFile) error
}
