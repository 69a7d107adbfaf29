package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Area stages a complete replacement file set next to a target
// directory, then swaps it into place as a single publish step. Until
// Commit succeeds the target is never touched, so a failed or discarded
// stage leaves it byte-for-byte intact.
type Area struct {
	target string
	dir    string
	done   bool
}

// NewArea creates a staging directory as a sibling of target, so the
// final rename never crosses a filesystem boundary.
func NewArea(target string) (*Area, error) {
	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("creating parent directory: %w", err)
	}

	dir, err := os.MkdirTemp(parent, ".stage-*")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	return &Area{target: target, dir: dir}, nil
}

// Add writes one file into the staging area. relPath must be relative
// and resolve inside the area; parent directories are created as
// needed.
func (a *Area) Add(relPath string, data []byte) error {
	if filepath.IsAbs(relPath) {
		return fmt.Errorf("staging path must be relative: %s", relPath)
	}
	dest := filepath.Join(a.dir, filepath.FromSlash(relPath))
	if rel, err := filepath.Rel(a.dir, dest); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("staging path escapes the staging area: %s", relPath)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating staging subdirectory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("writing staged file %s: %w", relPath, err)
	}
	return nil
}

// Commit swaps the staged tree into place: the old target is renamed
// aside, the stage renamed onto the target, and the old tree removed.
// If the second rename fails the old tree is restored, so the target is
// never left missing.
func (a *Area) Commit() error {
	if a.done {
		return fmt.Errorf("staging area already finished")
	}

	old := ""
	if _, err := os.Stat(a.target); err == nil {
		old, err = os.MkdirTemp(filepath.Dir(a.target), ".old-*")
		if err != nil {
			return fmt.Errorf("creating backup directory: %w", err)
		}
		// MkdirTemp reserves the name; the rename needs it gone.
		os.Remove(old)

		if err := os.Rename(a.target, old); err != nil {
			return fmt.Errorf("moving old tree aside: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat target: %w", err)
	}

	if err := os.Rename(a.dir, a.target); err != nil {
		if old != "" {
			if rbErr := os.Rename(old, a.target); rbErr != nil {
				return fmt.Errorf("publishing staged tree failed (%v) and rollback failed: %w", err, rbErr)
			}
		}
		return fmt.Errorf("publishing staged tree: %w", err)
	}

	a.done = true
	if old != "" {
		os.RemoveAll(old)
	}
	return nil
}

// Discard removes the staging area without touching the target. Safe to
// defer alongside Commit: after a successful Commit it is a no-op.
func (a *Area) Discard() error {
	if a.done {
		return nil
	}
	a.done = true
	if err := os.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("removing staging directory: %w", err)
	}
	return nil
}

// Dir returns the staging directory path. Exposed for tests.
func (a *Area) Dir() string {
	return a.dir
}
