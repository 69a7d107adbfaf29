package testutil

import (
	"context"
	"sort"
	"sync"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/model"
)

// MemoryTree is an in-memory working tree for tests. Replace swaps the
// whole file map; ReplaceErr, when set, makes Replace fail without
// touching the files.
type MemoryTree struct {
	mu         sync.Mutex
	files      map[string][]byte
	ReplaceErr error
}

// NewMemoryTree creates a MemoryTree seeded with files.
func NewMemoryTree(files map[string][]byte) *MemoryTree {
	m := make(map[string][]byte, len(files))
	for p, d := range files {
		m[p] = append([]byte(nil), d...)
	}
	return &MemoryTree{files: m}
}

func (t *MemoryTree) Snapshot(_ context.Context) ([]model.WorkingFile, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	paths := make([]string, 0, len(t.files))
	for p := range t.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	files := make([]model.WorkingFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, model.WorkingFile{
			Path: p,
			Data: append([]byte(nil), t.files[p]...),
		})
	}
	return files, nil
}

func (t *MemoryTree) Replace(_ context.Context, files []model.WorkingFile) error {
	if t.ReplaceErr != nil {
		return t.ReplaceErr
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := make(map[string][]byte, len(files))
	for _, f := range files {
		next[f.Path] = append([]byte(nil), f.Data...)
	}
	t.files = next
	return nil
}

// Set writes one file directly, bypassing Replace.
func (t *MemoryTree) Set(path string, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files[path] = append([]byte(nil), data...)
}

// Get reads one file; ok is false if the path is absent.
func (t *MemoryTree) Get(path string) (data []byte, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, ok = t.files[path]
	return append([]byte(nil), data...), ok
}

// Len returns the number of files in the tree.
func (t *MemoryTree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.files)
}

var _ ckpt.WorkingTree = (*MemoryTree)(nil)
