package ckpt

import (
	"context"
	"fmt"
	"path"
	"sort"

	"golang.org/x/exp/maps"

	"bkpt-go/internal/model"
)

// Compare classifies every path appearing in either the working files or
// the checkpoint with the given index. Each path lands in exactly one
// bucket. Callers must have verified the repository is non-empty via
// List; an empty repository is rejected here with ErrEmptyRepository.
func (s *Service) Compare(ctx context.Context, files []model.WorkingFile, index int64) (*model.DiffResult, error) {
	if err := s.requireNonEmpty(ctx); err != nil {
		return nil, err
	}

	cp, err := s.log.Get(ctx, index)
	if err != nil {
		return nil, err
	}

	res := Diff(files, cp)
	s.logger.Debug("compare complete",
		"index", index,
		"only_in_checkpoint", len(res.OnlyInCheckpoint),
		"only_in_working", len(res.OnlyInWorking),
		"modified", len(res.Modified),
	)
	return res, nil
}

// Diff computes the three-way file-set difference between working files
// and a checkpoint. It is a pure function: no storage is consulted.
// Byte-length mismatches short-circuit as modified without hashing.
func Diff(files []model.WorkingFile, cp *model.Checkpoint) *model.DiffResult {
	working := make(map[string]model.WorkingFile, len(files))
	for _, f := range files {
		working[path.Clean(f.Path)] = f
	}
	recorded := cp.FileSet()

	res := &model.DiffResult{}

	for _, p := range sortedKeys(recorded) {
		entry := recorded[p]
		wf, ok := working[p]
		if !ok {
			res.OnlyInCheckpoint = append(res.OnlyInCheckpoint, p)
			continue
		}
		if int64(len(wf.Data)) != entry.Ref.Size || Checksum(wf.Data) != entry.Ref.Checksum {
			res.Modified = append(res.Modified, model.ModifiedFile{
				Path:           p,
				Kind:           entry.Kind,
				WorkingSize:    int64(len(wf.Data)),
				CheckpointSize: entry.Ref.Size,
			})
			continue
		}
		res.Unchanged++
	}

	for _, p := range sortedKeys(working) {
		if _, ok := recorded[p]; !ok {
			res.OnlyInWorking = append(res.OnlyInWorking, p)
		}
	}

	return res
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	sort.Strings(keys)
	return keys
}

// ModifiedContent loads both sides of a modified text file for diff
// presentation. Binary files are refused: the comparator never exposes
// binary content, only the fact that the sides differ.
func (s *Service) ModifiedContent(ctx context.Context, files []model.WorkingFile, index int64, relPath string) (working, checkpointed []byte, err error) {
	cp, err := s.log.Get(ctx, index)
	if err != nil {
		return nil, nil, err
	}

	entry, ok := cp.FileSet()[path.Clean(relPath)]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s not in checkpoint %d", ErrNotFound, relPath, index)
	}
	if entry.Kind == model.KindBinary {
		return nil, nil, fmt.Errorf("refusing to load binary content for %s", relPath)
	}

	checkpointed, err = s.store.Get(ctx, entry.Ref)
	if err != nil {
		return nil, nil, err
	}

	for _, f := range files {
		if path.Clean(f.Path) == path.Clean(relPath) {
			return f.Data, checkpointed, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s not in working tree", ErrNotFound, relPath)
}
