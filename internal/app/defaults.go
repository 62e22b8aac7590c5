package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables read by the CLI.
const (
	EnvConfigPath = "PORTALSYNC_CONFIG_PATH"
	EnvHome       = "PORTALSYNC_HOME"
	EnvToken      = "PORTALSYNC_TOKEN"
	EnvPassphrase = "PORTALSYNC_PASSPHRASE"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - PORTALSYNC_CONFIG_PATH: config file location (default: ~/.config/portalsync.toml)
//   - PORTALSYNC_HOME: base directory for portalsync data (default: ~/.local/share/portalsync)
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

func getConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "portalsync.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "portalsync"), nil
}
