package ckpt

import (
	"context"
	"fmt"

	"bkpt-go/internal/model"
)

// Checkout replaces tree's contents with exactly the files recorded in
// the checkpoint at index, as an all-or-nothing operation. Returns the
// relative paths of the files now in the tree.
//
// Every content reference is resolved and verified before the working
// tree is touched, so a corrupt or incomplete repository fails fast with
// the tree intact. The replacement itself is delegated to the tree's
// atomic Replace. Unsaved working state that was never checkpointed is
// gone after a successful call; obtaining user confirmation is the
// caller's job.
func (s *Service) Checkout(ctx context.Context, tree WorkingTree, index int64) ([]string, error) {
	if err := s.requireNonEmpty(ctx); err != nil {
		return nil, err
	}

	cp, err := s.log.Get(ctx, index)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// Stage phase: fetch everything first. Get verifies integrity, so a
	// missing or corrupt payload surfaces here, before any mutation.
	files := make([]model.WorkingFile, 0, len(cp.Files))
	paths := make([]string, 0, len(cp.Files))
	for _, entry := range cp.Files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
		}
		data, err := s.store.Get(ctx, entry.Ref)
		if err != nil {
			return nil, err
		}
		files = append(files, model.WorkingFile{Path: entry.Path, Data: data})
		paths = append(paths, entry.Path)
	}

	// Swap phase: always completes or rolls back whole, so cancellation
	// no longer applies.
	if err := tree.Replace(context.WithoutCancel(ctx), files); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	s.logger.Info("checkout complete", "index", index, "files", len(paths))
	return paths, nil
}
