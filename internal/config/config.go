package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for bkpt.
type Config struct {
	StoreRoot   string           `toml:"store_root"` // directory holding all repositories
	LogDir      string           `toml:"log_dir"`
	Store       StoreConfig      `toml:"store"`
	Lock        LockConfig       `toml:"lock"`
	Encryption  EncryptionConfig `toml:"encryption"`
	WorkingTree WorkingTreeConfig `toml:"working_tree"`
}

// StoreConfig selects the content store backend.
// Tagged union: the Type field determines which other fields apply.
type StoreConfig struct {
	Type string `toml:"type"` // "filesystem" (default) or "memory"
}

// LockConfig tunes the bounded retry loop for the repository lock.
type LockConfig struct {
	Attempts     int `toml:"attempts"`       // defaults to 10
	RetryDelayMS int `toml:"retry_delay_ms"` // defaults to 150
}

// EncryptionConfig holds the at-rest encryption settings.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default) or "age"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// WorkingTreeConfig holds working-tree enumeration settings.
type WorkingTreeConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		StoreRoot: filepath.Join(baseDir, "repositories"),
		LogDir:    filepath.Join(baseDir, "log"),
		Lock: LockConfig{
			Attempts:     10,
			RetryDelayMS: 150,
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "bkpt.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "bkpt.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
