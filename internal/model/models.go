package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// BookIdentity identifies one book across editor sessions.
// The UUID is the book's persistent unique identifier; Title, SourcePath
// and FormatVersion are display metadata carried along for the
// repository management view.
type BookIdentity struct {
	UUID          string
	Title         string
	SourcePath    string
	FormatVersion string
}

// Key returns the stable repository directory name for this identity.
// Two different books never share a key; the same book always resolves
// to the same key. The UUID wins when present, otherwise the key is
// derived from the title.
func (b BookIdentity) Key() string {
	if b.UUID != "" {
		return b.UUID
	}
	sum := sha256.Sum256([]byte(b.Title))
	return hex.EncodeToString(sum[:16])
}

// ContentRef references a stored payload by content identity.
type ContentRef struct {
	Checksum string // SHA-256, lowercase hex
	Size     int64
}

// FileKind is a presentation hint recorded once at checkpoint time.
// It never influences diff correctness.
type FileKind int

const (
	KindText FileKind = iota
	KindBinary
)

func (k FileKind) String() string {
	if k == KindBinary {
		return "binary"
	}
	return "text"
}

// FileEntry is one file recorded in a checkpoint's file set.
type FileEntry struct {
	Path string // relative path, unique within the checkpoint
	Ref  ContentRef
	Kind FileKind
}

// Checkpoint is an immutable, self-contained snapshot of a working tree.
// Book metadata is recorded for display only and is not part of the
// file set used for diff or checkout.
type Checkpoint struct {
	Index       int64
	CreatedAt   time.Time
	Description string
	Book        BookIdentity
	Files       []FileEntry
}

// FileSet returns the checkpoint's files keyed by relative path.
func (c *Checkpoint) FileSet() map[string]FileEntry {
	m := make(map[string]FileEntry, len(c.Files))
	for _, f := range c.Files {
		m[f.Path] = f
	}
	return m
}

// CheckpointSummary is the browsing projection of a checkpoint.
type CheckpointSummary struct {
	Index       int64
	CreatedAt   time.Time
	Description string
	FileCount   int
}

// WorkingFile is one file of the live working tree.
type WorkingFile struct {
	Path string
	Data []byte
}

// ModifiedFile describes a path present on both sides with differing
// content. For binary files only the sizes are ever shown.
type ModifiedFile struct {
	Path           string
	Kind           FileKind
	WorkingSize    int64
	CheckpointSize int64
}

// DiffResult classifies every path appearing in either the working tree
// or a checkpoint into exactly one bucket. Unchanged paths are counted
// but not listed.
type DiffResult struct {
	OnlyInCheckpoint []string
	OnlyInWorking    []string
	Modified         []ModifiedFile
	Unchanged        int
}

// Empty reports whether the two sides are identical.
func (d *DiffResult) Empty() bool {
	return len(d.OnlyInCheckpoint) == 0 && len(d.OnlyInWorking) == 0 && len(d.Modified) == 0
}

// RepositorySummary is the management-view projection of a repository.
type RepositorySummary struct {
	ID              string // repository directory name (BookIdentity key)
	Title           string
	SourcePath      string
	BookUUID        string
	FormatVersion   string
	CheckpointCount int
	LastModified    time.Time
}
