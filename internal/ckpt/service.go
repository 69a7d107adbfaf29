package ckpt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"bkpt-go/internal/model"
)

// Service coordinates the content store, checkpoint log and repository
// lock to perform the checkpoint operations needed by the host
// application. It holds no global mutable state and is safe to call
// from any goroutine.
type Service struct {
	log    Log
	store  ContentStore
	locker Locker
	logger Logger
	clock  Clock
}

// NewService creates a Service for one open repository.
func NewService(log Log, store ContentStore, locker Locker, logger Logger, clock Clock) *Service {
	return &Service{
		log:    log,
		store:  store,
		locker: locker,
		logger: logger,
		clock:  clock,
	}
}

// Checksum returns the SHA-256 checksum of data as lowercase hex.
// This is the content identity used throughout the subsystem.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// List returns the repository's checkpoint history, oldest first.
func (s *Service) List(ctx context.Context) ([]model.CheckpointSummary, error) {
	return s.log.List(ctx)
}

// Get returns one full checkpoint by index.
func (s *Service) Get(ctx context.Context, index int64) (*model.Checkpoint, error) {
	return s.log.Get(ctx, index)
}

// requireNonEmpty rejects operations that need at least one published
// checkpoint.
func (s *Service) requireNonEmpty(ctx context.Context) error {
	n, err := s.log.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting checkpoints: %w", err)
	}
	if n == 0 {
		return ErrEmptyRepository
	}
	return nil
}
