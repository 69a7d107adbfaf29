package staging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bkpt-go/internal/staging"
)

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	got := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		got[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("reading tree %s: %v", root, err)
	}
	return got
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for p, data := range files {
		dest := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(dest, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestArea_Commit(t *testing.T) {
	t.Run("replaces existing target wholesale", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "book")
		writeTree(t, target, map[string]string{
			"keepme.txt":     "old version",
			"obsolete.txt":   "should disappear",
			"deep/child.txt": "also gone",
		})

		area, err := staging.NewArea(target)
		if err != nil {
			t.Fatalf("NewArea() error = %v", err)
		}
		defer area.Discard()

		if err := area.Add("keepme.txt", []byte("new version")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if err := area.Add("fresh/also.txt", []byte("brand new")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if err := area.Commit(); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}

		want := map[string]string{
			"keepme.txt":     "new version",
			"fresh/also.txt": "brand new",
		}
		got := readTree(t, target)
		if len(got) != len(want) {
			t.Errorf("tree = %v, want %v", got, want)
		}
		for p, data := range want {
			if got[p] != data {
				t.Errorf("%s = %q, want %q", p, got[p], data)
			}
		}
	})

	t.Run("creates target when absent", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "book")

		area, err := staging.NewArea(target)
		if err != nil {
			t.Fatalf("NewArea() error = %v", err)
		}
		defer area.Discard()

		if err := area.Add("only.txt", []byte("content")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if err := area.Commit(); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}

		got := readTree(t, target)
		if got["only.txt"] != "content" {
			t.Errorf("tree = %v", got)
		}
	})

	t.Run("leaves no stage or backup directories behind", func(t *testing.T) {
		parent := t.TempDir()
		target := filepath.Join(parent, "book")
		writeTree(t, target, map[string]string{"a.txt": "old"})

		area, err := staging.NewArea(target)
		if err != nil {
			t.Fatalf("NewArea() error = %v", err)
		}
		if err := area.Add("a.txt", []byte("new")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if err := area.Commit(); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		area.Discard()

		entries, err := os.ReadDir(parent)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".stage-") || strings.HasPrefix(e.Name(), ".old-") {
				t.Errorf("leftover directory %s", e.Name())
			}
		}
	})

	t.Run("double commit is rejected", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "book")
		area, err := staging.NewArea(target)
		if err != nil {
			t.Fatalf("NewArea() error = %v", err)
		}
		if err := area.Commit(); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		if err := area.Commit(); err == nil {
			t.Error("second Commit() succeeded, want error")
		}
	})
}

func TestArea_Discard(t *testing.T) {
	t.Run("leaves target untouched", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "book")
		writeTree(t, target, map[string]string{"a.txt": "original"})

		area, err := staging.NewArea(target)
		if err != nil {
			t.Fatalf("NewArea() error = %v", err)
		}
		if err := area.Add("a.txt", []byte("staged but never published")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if err := area.Discard(); err != nil {
			t.Fatalf("Discard() error = %v", err)
		}

		got := readTree(t, target)
		if got["a.txt"] != "original" {
			t.Errorf("target changed: %v", got)
		}
		if _, err := os.Stat(area.Dir()); !os.IsNotExist(err) {
			t.Error("staging directory still exists after Discard")
		}
	})

	t.Run("no-op after commit", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "book")
		area, err := staging.NewArea(target)
		if err != nil {
			t.Fatalf("NewArea() error = %v", err)
		}
		if err := area.Add("a.txt", []byte("x")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if err := area.Commit(); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		if err := area.Discard(); err != nil {
			t.Fatalf("Discard() after Commit error = %v", err)
		}
		got := readTree(t, target)
		if got["a.txt"] != "x" {
			t.Errorf("Discard after Commit removed published files: %v", got)
		}
	})
}

func TestArea_Add(t *testing.T) {
	parent := t.TempDir()
	target := filepath.Join(parent, "book")
	area, err := staging.NewArea(target)
	if err != nil {
		t.Fatalf("NewArea() error = %v", err)
	}
	defer area.Discard()

	if err := area.Add("/etc/passwd", []byte("nope")); err == nil {
		t.Error("Add() accepted an absolute path")
	}
	if err := area.Add("deeply/nested/dirs/file.txt", []byte("ok")); err != nil {
		t.Errorf("Add() with nested path error = %v", err)
	}

	// Paths that climb out of the staging area are rejected before any
	// write happens.
	for _, p := range []string{
		"../escaped.txt",
		"..",
		"a/../../escaped.txt",
		"../book-sibling/escaped.txt",
	} {
		if err := area.Add(p, []byte("outside")); err == nil {
			t.Errorf("Add(%q) accepted a path escaping the staging area", p)
		}
	}
	if _, err := os.Stat(filepath.Join(parent, "escaped.txt")); !os.IsNotExist(err) {
		t.Error("traversal path was written outside the staging area")
	}
}
