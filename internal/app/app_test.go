package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bkpt-go/internal/app"
	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/config"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Lock.Attempts = 2
	cfg.Lock.RetryDelayMS = 10

	a, err := app.NewApp(cfg, "Test")
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func newBookDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for p, data := range files {
		dest := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(dest, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestApp_SaveRestoreCycle(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	dir := newBookDir(t, map[string]string{
		"text/ch1.xhtml": "<p>first draft</p>",
		"mimetype":       "application/epub+zip",
	})

	index, err := a.SaveCheckpoint(ctx, dir, "first draft")
	if err != nil {
		t.Fatalf("SaveCheckpoint() error = %v", err)
	}
	if index != 1 {
		t.Errorf("index = %d, want 1", index)
	}

	// The identity file is created on first contact and excluded from the
	// checkpoint.
	idData, err := os.ReadFile(filepath.Join(dir, ".bkptid"))
	if err != nil {
		t.Fatalf("identity file missing: %v", err)
	}
	cp, err := a.GetCheckpoint(ctx, dir, index)
	if err != nil {
		t.Fatalf("GetCheckpoint() error = %v", err)
	}
	if len(cp.Files) != 2 {
		t.Errorf("checkpoint has %d files, want 2", len(cp.Files))
	}
	for _, f := range cp.Files {
		if f.Path == ".bkptid" {
			t.Error("identity file was checkpointed")
		}
	}

	// Mangle the book, then restore.
	if err := os.WriteFile(filepath.Join(dir, "text", "ch1.xhtml"), []byte("<p>ruined</p>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("leftover"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := a.Compare(ctx, dir, index)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if len(res.Modified) != 1 || len(res.OnlyInWorking) != 1 {
		t.Errorf("diff = %+v", res)
	}

	replaced, err := a.Restore(ctx, dir, index)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(replaced) != 2 {
		t.Errorf("Restore() replaced %d files, want 2", len(replaced))
	}

	data, err := os.ReadFile(filepath.Join(dir, "text", "ch1.xhtml"))
	if err != nil || string(data) != "<p>first draft</p>" {
		t.Errorf("ch1.xhtml after restore = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "stray.txt")); !os.IsNotExist(err) {
		t.Error("stray.txt survived restore")
	}

	// The book keeps its identity across the restore.
	idAfter, err := os.ReadFile(filepath.Join(dir, ".bkptid"))
	if err != nil {
		t.Fatalf("identity file missing after restore: %v", err)
	}
	if strings.TrimSpace(string(idAfter)) != strings.TrimSpace(string(idData)) {
		t.Errorf("identity changed across restore: %q vs %q", idAfter, idData)
	}

	// And a post-restore diff is clean.
	res, err = a.Compare(ctx, dir, index)
	if err != nil {
		t.Fatalf("Compare() after restore error = %v", err)
	}
	if !res.Empty() {
		t.Errorf("diff after restore = %+v, want empty", res)
	}
}

func TestApp_ListCheckpoints(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	dir := newBookDir(t, map[string]string{"ch1.txt": "one"})

	if _, err := a.SaveCheckpoint(ctx, dir, "first"); err != nil {
		t.Fatalf("SaveCheckpoint() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ch1.txt"), []byte("two"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := a.SaveCheckpoint(ctx, dir, "second"); err != nil {
		t.Fatalf("SaveCheckpoint() error = %v", err)
	}

	summaries, err := a.ListCheckpoints(ctx, dir)
	if err != nil {
		t.Fatalf("ListCheckpoints() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("ListCheckpoints() = %d, want 2", len(summaries))
	}
	if summaries[0].Description != "first" || summaries[1].Description != "second" {
		t.Errorf("summaries = %+v", summaries)
	}
}

func TestApp_Repositories(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	dir := newBookDir(t, map[string]string{"ch1.txt": "x"})
	if _, err := a.SaveCheckpoint(ctx, dir, ""); err != nil {
		t.Fatalf("SaveCheckpoint() error = %v", err)
	}

	summaries, err := a.ListRepositories(ctx)
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("ListRepositories() = %d, want 1", len(summaries))
	}
	if summaries[0].Title != filepath.Base(dir) {
		t.Errorf("title = %q, want %q", summaries[0].Title, filepath.Base(dir))
	}

	if err := a.RemoveRepository(ctx, summaries[0].ID); err != nil {
		t.Fatalf("RemoveRepository() error = %v", err)
	}
	summaries, err = a.ListRepositories(ctx)
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("repositories remain: %v", summaries)
	}

	if err := a.RemoveAllRepositories(ctx); !errors.Is(err, ckpt.ErrNothingSelected) {
		t.Errorf("RemoveAllRepositories() on empty store = %v, want ErrNothingSelected", err)
	}
}

func TestApp_Verify(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	dir := newBookDir(t, map[string]string{"ch1.txt": "sound"})
	if _, err := a.SaveCheckpoint(ctx, dir, ""); err != nil {
		t.Fatalf("SaveCheckpoint() error = %v", err)
	}

	problems, err := a.Verify(ctx, dir)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if len(problems) != 0 {
		t.Errorf("Verify() = %v, want none", problems)
	}
}
