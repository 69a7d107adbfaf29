package store

import (
	"fmt"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/config"
)

// NewStoreFromConfig creates a ContentStore for one repository based on
// the store config type. dir is the repository's content directory.
func NewStoreFromConfig(cfg config.StoreConfig, dir string, cipher ckpt.Cipher) (ckpt.ContentStore, error) {
	switch cfg.Type {
	case "filesystem", "":
		return NewFileSystemStore(dir, cipher)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}
