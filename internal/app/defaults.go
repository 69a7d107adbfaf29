package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first.
// Environment variables:
//   - BKPT_CONFIG_PATH: config file location (default: ~/.config/bkpt.toml)
//   - BKPT_HOME: base directory for bkpt data (default: ~/.local/share/bkpt)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking BKPT_CONFIG_PATH
// first, then falling back to the default ~/.config/bkpt.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("BKPT_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "bkpt.toml"), nil
}

// getBaseDir returns the base directory for bkpt data, checking
// BKPT_HOME first, then falling back to the XDG default
// ~/.local/share/bkpt.
func getBaseDir() (string, error) {
	if path := os.Getenv("BKPT_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "bkpt"), nil
}
