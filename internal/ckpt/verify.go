package ckpt

import (
	"context"
	"errors"
	"fmt"
)

// VerifyProblem describes one integrity finding from Verify.
type VerifyProblem struct {
	Index    int64
	Path     string
	Checksum string
	Err      error
}

func (p VerifyProblem) String() string {
	return fmt.Sprintf("checkpoint %d: %s (%s): %v", p.Index, p.Path, shortChecksum(p.Checksum), p.Err)
}

// Verify walks every published checkpoint and checks that each content
// reference resolves to an intact payload. It reports all problems
// found rather than stopping at the first; a nil slice means the
// repository is sound.
func (s *Service) Verify(ctx context.Context) ([]VerifyProblem, error) {
	summaries, err := s.log.List(ctx)
	if err != nil {
		return nil, err
	}

	checked := make(map[string]error)
	var problems []VerifyProblem

	for _, sum := range summaries {
		cp, err := s.log.Get(ctx, sum.Index)
		if err != nil {
			return problems, err
		}
		for _, entry := range cp.Files {
			if err := ctx.Err(); err != nil {
				return problems, err
			}
			verr, done := checked[entry.Ref.Checksum]
			if !done {
				_, verr = s.store.Get(ctx, entry.Ref)
				if verr != nil && !errors.Is(verr, ErrNotFound) && !errors.Is(verr, ErrIntegrityMismatch) {
					return problems, verr
				}
				checked[entry.Ref.Checksum] = verr
			}
			if verr != nil {
				problems = append(problems, VerifyProblem{
					Index:    cp.Index,
					Path:     entry.Path,
					Checksum: entry.Ref.Checksum,
					Err:      verr,
				})
			}
		}
	}

	if len(problems) > 0 {
		s.logger.Warn("verify found problems", "count", len(problems))
	}
	return problems, nil
}

func shortChecksum(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
