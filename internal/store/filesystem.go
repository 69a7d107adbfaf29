package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/model"
)

// FileSystemStore is a filesystem-backed content store. Payloads live
// under a single directory, one file per checksum:
//
//	<root>/
//	  <sha256>   (payload, possibly encrypted at rest)
//
// Durability: payloads are written to a temp file in the same
// directory, fsynced, then renamed into place and the directory synced,
// so a reference returned by Put survives a crash.
type FileSystemStore struct {
	root   string
	cipher ckpt.Cipher
}

// NewFileSystemStore creates a content store rooted at the given
// directory. cipher transforms payloads at rest; pass a no-op cipher
// for plaintext storage.
func NewFileSystemStore(root string, cipher ckpt.Cipher) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating content directory: %w", err)
	}
	return &FileSystemStore{root: root, cipher: cipher}, nil
}

// Put stores data under its checksum. Idempotent by content identity.
func (s *FileSystemStore) Put(ctx context.Context, data []byte) (model.ContentRef, error) {
	ref := model.ContentRef{
		Checksum: ckpt.Checksum(data),
		Size:     int64(len(data)),
	}

	destPath := s.payloadPath(ref.Checksum)
	if _, err := os.Stat(destPath); err == nil {
		return ref, nil
	}

	if err := ctx.Err(); err != nil {
		return model.ContentRef{}, err
	}

	if err := s.writePayload(destPath, data); err != nil {
		return model.ContentRef{}, err
	}
	return ref, nil
}

// Get returns the payload for ref, verifying its integrity on the way
// out.
func (s *FileSystemStore) Get(ctx context.Context, ref model.ContentRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.payloadPath(ref.Checksum))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ckpt.ErrNotFound, ref.Checksum)
		}
		return nil, fmt.Errorf("opening payload: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := s.cipher.Decrypt(f, &buf); err != nil {
		return nil, fmt.Errorf("decrypting payload %s: %w", ref.Checksum, err)
	}
	data := buf.Bytes()

	if int64(len(data)) != ref.Size || ckpt.Checksum(data) != ref.Checksum {
		return nil, fmt.Errorf("%w: %s", ckpt.ErrIntegrityMismatch, ref.Checksum)
	}
	return data, nil
}

// Has reports whether a payload file exists for ref.
func (s *FileSystemStore) Has(ref model.ContentRef) (bool, error) {
	_, err := os.Stat(s.payloadPath(ref.Checksum))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat payload: %w", err)
}

func (s *FileSystemStore) payloadPath(checksum string) string {
	return filepath.Join(s.root, checksum)
}

// writePayload writes data through the cipher to destPath atomically
// and durably.
func (s *FileSystemStore) writePayload(destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := s.cipher.Encrypt(bytes.NewReader(data), tmpFile); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing payload: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing payload: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("renaming payload into place: %w", err)
	}
	success = true

	// Sync the directory so the rename itself is durable.
	if dir, err := os.Open(s.root); err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

// Compile-time check that FileSystemStore implements ckpt.ContentStore
var _ ckpt.ContentStore = (*FileSystemStore)(nil)
