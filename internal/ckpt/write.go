package ckpt

import (
	"context"
	"fmt"
	"path"
	"strings"

	"bkpt-go/internal/model"
)

// Write snapshots the given working files into a new checkpoint and
// appends it to the log. Returns the assigned checkpoint index.
//
// Strategy: store every payload first (durable and idempotent), then
// publish the checkpoint record in a single log transaction. Any failure
// before the publish leaves the repository exactly as it was; orphaned
// payloads in the content store are harmless and reclaimed by later
// checkpoints that reference them. Cancellation is honored between file
// stores but refused once the publish begins.
func (s *Service) Write(ctx context.Context, files []model.WorkingFile, description string) (int64, error) {
	release, err := s.locker.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	entries := make([]model.FileEntry, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrCheckpointFailed, err)
		}

		rel := path.Clean(f.Path)
		if path.IsAbs(rel) || rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
			return 0, fmt.Errorf("%w: path escapes the working tree: %q", ErrCheckpointFailed, f.Path)
		}
		if seen[rel] {
			return 0, fmt.Errorf("%w: duplicate path %q", ErrCheckpointFailed, rel)
		}
		seen[rel] = true

		ref, err := s.store.Put(ctx, f.Data)
		if err != nil {
			return 0, fmt.Errorf("%w: storing %s: %w", ErrCheckpointFailed, rel, err)
		}

		entries = append(entries, model.FileEntry{
			Path: rel,
			Ref:  ref,
			Kind: SniffKind(f.Data),
		})
	}

	book, err := s.log.Book(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: reading book metadata: %w", ErrCheckpointFailed, err)
	}

	cp := &model.Checkpoint{
		CreatedAt:   s.clock.Now(),
		Description: description,
		Book:        book,
		Files:       entries,
	}

	// Publish. From here on the operation completes or rolls back whole;
	// the surrounding context is deliberately not consulted.
	index, err := s.log.Append(context.WithoutCancel(ctx), cp)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCheckpointFailed, err)
	}

	s.logger.Info("checkpoint written", "index", index, "files", len(entries))
	return index, nil
}
