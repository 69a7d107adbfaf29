package ckpt_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/model"
	"bkpt-go/internal/testutil"
)

func TestService_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("sound repository reports no problems", func(t *testing.T) {
		ts := testutil.NewTestService(t)

		for _, desc := range []string{"one", "two"} {
			if _, err := ts.Service.Write(ctx, []model.WorkingFile{
				{Path: "a.txt", Data: []byte(desc)},
				{Path: "b.txt", Data: []byte("stable")},
			}, desc); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
		}

		problems, err := ts.Service.Verify(ctx)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if len(problems) != 0 {
			t.Errorf("Verify() found %d problems in a sound repository: %v", len(problems), problems)
		}
	})

	t.Run("empty repository is sound", func(t *testing.T) {
		ts := testutil.NewTestService(t)

		problems, err := ts.Service.Verify(ctx)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if len(problems) != 0 {
			t.Errorf("Verify() = %v, want none", problems)
		}
	})

	t.Run("reports missing and corrupt payloads without stopping", func(t *testing.T) {
		ts := testutil.NewTestService(t)

		if _, err := ts.Service.Write(ctx, []model.WorkingFile{
			{Path: "a.txt", Data: []byte("alpha")},
			{Path: "b.txt", Data: []byte("beta")},
			{Path: "c.txt", Data: []byte("gamma")},
		}, ""); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		ts.Store.Delete(ckpt.Checksum([]byte("alpha")))
		ts.Store.Corrupt(ckpt.Checksum([]byte("beta")), []byte("mangled"))

		problems, err := ts.Service.Verify(ctx)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if len(problems) != 2 {
			t.Fatalf("Verify() found %d problems, want 2: %v", len(problems), problems)
		}

		byPath := map[string]ckpt.VerifyProblem{}
		for _, p := range problems {
			byPath[p.Path] = p
		}
		if !errors.Is(byPath["a.txt"].Err, ckpt.ErrNotFound) {
			t.Errorf("a.txt problem = %v, want ErrNotFound", byPath["a.txt"].Err)
		}
		if !errors.Is(byPath["b.txt"].Err, ckpt.ErrIntegrityMismatch) {
			t.Errorf("b.txt problem = %v, want ErrIntegrityMismatch", byPath["b.txt"].Err)
		}
	})

	t.Run("shared payload reported once per referencing entry", func(t *testing.T) {
		ts := testutil.NewTestService(t)

		// Same content in two checkpoints; one stored payload backs both.
		files := []model.WorkingFile{{Path: "a.txt", Data: []byte("shared")}}
		if _, err := ts.Service.Write(ctx, files, "first"); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if _, err := ts.Service.Write(ctx, files, "second"); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		ts.Store.Delete(ckpt.Checksum([]byte("shared")))

		problems, err := ts.Service.Verify(ctx)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if len(problems) != 2 {
			t.Fatalf("Verify() found %d problems, want one per checkpoint: %v", len(problems), problems)
		}
		if problems[0].Index == problems[1].Index {
			t.Errorf("problems reference the same checkpoint: %v", problems)
		}
	})

	t.Run("problem string names checkpoint and path", func(t *testing.T) {
		p := ckpt.VerifyProblem{
			Index:    3,
			Path:     "text/ch1.xhtml",
			Checksum: strings.Repeat("ab", 32),
			Err:      ckpt.ErrNotFound,
		}
		s := p.String()
		if !strings.Contains(s, "checkpoint 3") || !strings.Contains(s, "text/ch1.xhtml") {
			t.Errorf("String() = %q", s)
		}
	})
}
