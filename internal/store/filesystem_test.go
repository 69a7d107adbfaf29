package store_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/encryption"
	"bkpt-go/internal/model"
	"bkpt-go/internal/store"
)

// failingCipher decrypts nothing, standing in for a locked key.
type failingCipher struct {
	err error
}

func (c failingCipher) Encrypt(r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}

func (c failingCipher) Decrypt(io.Reader, io.Writer) error { return c.err }

func newFSStore(t *testing.T) (*store.FileSystemStore, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "content")
	s, err := store.NewFileSystemStore(root, encryption.NoneCipher{})
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	return s, root
}

func TestFileSystemStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put then get round trip", func(t *testing.T) {
		s, _ := newFSStore(t)

		payload := []byte("chapter one content")
		ref, err := s.Put(ctx, payload)
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if ref.Size != int64(len(payload)) {
			t.Errorf("ref.Size = %d, want %d", ref.Size, len(payload))
		}
		if len(ref.Checksum) != 64 {
			t.Errorf("ref.Checksum = %q, want 64 hex chars", ref.Checksum)
		}

		got, err := s.Get(ctx, ref)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("Get() = %q, want %q", got, payload)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		s, _ := newFSStore(t)

		ref, err := s.Put(ctx, nil)
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		got, err := s.Get(ctx, ref)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Get() = %q, want empty", got)
		}
	})

	t.Run("put is idempotent", func(t *testing.T) {
		s, root := newFSStore(t)

		payload := []byte("duplicated content")
		ref1, err := s.Put(ctx, payload)
		if err != nil {
			t.Fatalf("first Put() error = %v", err)
		}
		ref2, err := s.Put(ctx, payload)
		if err != nil {
			t.Fatalf("second Put() error = %v", err)
		}
		if ref1 != ref2 {
			t.Errorf("refs differ: %+v vs %+v", ref1, ref2)
		}

		entries, err := os.ReadDir(root)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("store holds %d files, want 1", len(entries))
		}
	})

	t.Run("get unknown ref", func(t *testing.T) {
		s, _ := newFSStore(t)

		_, err := s.Get(ctx, model.ContentRef{Checksum: strings.Repeat("0", 64), Size: 1})
		if !errors.Is(err, ckpt.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("has", func(t *testing.T) {
		s, _ := newFSStore(t)

		ref, err := s.Put(ctx, []byte("present"))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if ok, err := s.Has(ref); err != nil || !ok {
			t.Errorf("Has(present) = %v, %v", ok, err)
		}
		absent := model.ContentRef{Checksum: strings.Repeat("f", 64)}
		if ok, err := s.Has(absent); err != nil || ok {
			t.Errorf("Has(absent) = %v, %v", ok, err)
		}
	})

	t.Run("on-disk tampering is detected", func(t *testing.T) {
		s, root := newFSStore(t)

		ref, err := s.Put(ctx, []byte("original"))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := os.WriteFile(filepath.Join(root, ref.Checksum), []byte("tampered!"), 0644); err != nil {
			t.Fatalf("tampering: %v", err)
		}

		_, err = s.Get(ctx, ref)
		if !errors.Is(err, ckpt.ErrIntegrityMismatch) {
			t.Errorf("Get() error = %v, want ErrIntegrityMismatch", err)
		}
	})

	t.Run("truncation is detected", func(t *testing.T) {
		s, root := newFSStore(t)

		ref, err := s.Put(ctx, []byte("some longer payload"))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := os.Truncate(filepath.Join(root, ref.Checksum), 4); err != nil {
			t.Fatalf("truncating: %v", err)
		}

		_, err = s.Get(ctx, ref)
		if !errors.Is(err, ckpt.ErrIntegrityMismatch) {
			t.Errorf("Get() error = %v, want ErrIntegrityMismatch", err)
		}
	})

	t.Run("no temp files linger after puts", func(t *testing.T) {
		s, root := newFSStore(t)

		for i := 0; i < 5; i++ {
			if _, err := s.Put(ctx, []byte{byte(i)}); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".tmp-") {
				t.Errorf("temp file %s left behind", e.Name())
			}
		}
	})

	t.Run("decrypt failure is not reported as corruption", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "content")
		writer, err := store.NewFileSystemStore(root, encryption.NoneCipher{})
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}
		ref, err := writer.Put(context.Background(), []byte("payload"))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		// Same payloads read through a cipher that cannot decrypt, like a
		// locked key. The payload on disk is intact.
		locked := errors.New("key has not been unlocked")
		reader, err := store.NewFileSystemStore(root, failingCipher{err: locked})
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}

		_, err = reader.Get(context.Background(), ref)
		if !errors.Is(err, locked) {
			t.Errorf("Get() error = %v, want wrapped cipher error", err)
		}
		if errors.Is(err, ckpt.ErrIntegrityMismatch) {
			t.Errorf("Get() error = %v, cipher failure reported as corruption", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s, _ := newFSStore(t)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := s.Put(cancelled, []byte("never")); !errors.Is(err, context.Canceled) {
			t.Errorf("Put() error = %v, want context.Canceled", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip and dedup", func(t *testing.T) {
		s := store.NewMemoryStore()

		ref, err := s.Put(ctx, []byte("hello"))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if _, err := s.Put(ctx, []byte("hello")); err != nil {
			t.Fatalf("second Put() error = %v", err)
		}
		if s.Len() != 1 {
			t.Errorf("Len() = %d, want 1", s.Len())
		}

		got, err := s.Get(ctx, ref)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != "hello" {
			t.Errorf("Get() = %q", got)
		}
	})

	t.Run("get returns a copy", func(t *testing.T) {
		s := store.NewMemoryStore()

		ref, _ := s.Put(ctx, []byte("immutable"))
		got, _ := s.Get(ctx, ref)
		got[0] = 'X'

		again, err := s.Get(ctx, ref)
		if err != nil {
			t.Fatalf("Get() after mutation error = %v", err)
		}
		if string(again) != "immutable" {
			t.Errorf("stored payload mutated: %q", again)
		}
	})

	t.Run("corrupt and delete hooks", func(t *testing.T) {
		s := store.NewMemoryStore()

		ref, _ := s.Put(ctx, []byte("target"))
		s.Corrupt(ref.Checksum, []byte("junk"))
		if _, err := s.Get(ctx, ref); !errors.Is(err, ckpt.ErrIntegrityMismatch) {
			t.Errorf("Get() after Corrupt error = %v, want ErrIntegrityMismatch", err)
		}

		s.Delete(ref.Checksum)
		if _, err := s.Get(ctx, ref); !errors.Is(err, ckpt.ErrNotFound) {
			t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
		}
	})
}
