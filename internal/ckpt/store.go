package ckpt

import (
	"context"

	"bkpt-go/internal/model"
)

// ContentStore persists file payloads deduplicated by content identity.
type ContentStore interface {
	// Put stores data under its SHA-256 checksum and returns the
	// reference. Idempotent: storing identical bytes twice is a no-op
	// after the first write and always yields the same reference. The
	// payload is durable on disk before Put returns.
	Put(ctx context.Context, data []byte) (model.ContentRef, error)

	// Get returns the payload for ref. Fails with ErrNotFound if the
	// payload is missing and ErrIntegrityMismatch if the stored bytes no
	// longer hash to ref.Checksum.
	Get(ctx context.Context, ref model.ContentRef) ([]byte, error)

	// Has reports whether a payload exists for ref without reading it.
	Has(ref model.ContentRef) (bool, error)
}
