package worktree

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/model"
	"bkpt-go/internal/staging"
)

// DirTree is a directory-backed working tree. Snapshot walks the
// directory and reads every non-ignored regular file; Replace stages a
// full replacement tree as a sibling directory and swaps it into place.
type DirTree struct {
	root   string
	ignore *IgnoreMatcher
}

// NewDirTree creates a working tree rooted at root. configPatterns are
// additional ignore patterns from configuration; patterns from a
// .bkptignore file in the root are applied on top.
func NewDirTree(root string, configPatterns []string) (*DirTree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving working tree root: %w", err)
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(abs, ".bkptignore"))
	if err != nil {
		return nil, err
	}

	return &DirTree{
		root:   abs,
		ignore: NewIgnoreMatcher(append(append([]string{}, configPatterns...), filePatterns...)),
	}, nil
}

// Root returns the absolute working tree root.
func (t *DirTree) Root() string {
	return t.root
}

// Snapshot enumerates every non-ignored regular file under the root.
// Paths are slash-separated and relative to the root, sorted for
// deterministic output.
func (t *DirTree) Snapshot(ctx context.Context) ([]model.WorkingFile, error) {
	var files []model.WorkingFile

	err := filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		rel, err := filepath.Rel(t.root, path)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if t.ignore.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || t.ignore.Match(rel) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		files = append(files, model.WorkingFile{
			Path: filepath.ToSlash(rel),
			Data: data,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshotting working tree: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Replace swaps the entire working tree for files. The new tree is
// fully staged before the old one is touched; files present before but
// absent from files disappear with the old tree.
func (t *DirTree) Replace(ctx context.Context, files []model.WorkingFile) error {
	area, err := staging.NewArea(t.root)
	if err != nil {
		return err
	}
	defer area.Discard()

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := area.Add(f.Path, f.Data); err != nil {
			return err
		}
	}

	return area.Commit()
}

// Compile-time check that DirTree implements ckpt.WorkingTree
var _ ckpt.WorkingTree = (*DirTree)(nil)
