package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for portalsync.
type Config struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	Portal    PortalConfig    `toml:"portal"`
	Remote    RemoteConfig    `toml:"remote"`
	Secret    SecretConfig    `toml:"secret"`
	Workspace WorkspaceConfig `toml:"workspace"`
	Database  DatabaseConfig  `toml:"database"`
	Pending   PendingConfig   `toml:"pending"`
	Log       LogConfig       `toml:"log"`
}

// PortalConfig identifies the portal being mirrored. An empty ID makes
// download ask which portal to use.
type PortalConfig struct {
	ID                    string `toml:"id"`
	Name                  string `toml:"name"`
	DefaultPageTemplateID string `toml:"default_page_template_id"`
}

// RemoteConfig represents the CMS connection.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type           string `toml:"type"`                      // "http" or "memory"
	BaseURL        string `toml:"base_url,omitempty"`        // only used for type=http
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"` // only used for type=http
	MaxRetries     int    `toml:"max_retries,omitempty"`     // only used for type=http
}

// SecretConfig says where the CMS API token is kept.
type SecretConfig struct {
	Type      string `toml:"type"` // "age" (default) or "plain"
	TokenFile string `toml:"token_file"`
}

// WorkspaceConfig describes the local folder layout. Folder names are
// relative to Root.
type WorkspaceConfig struct {
	Root         string   `toml:"root"`
	TemplatesDir string   `toml:"templates_dir"`
	SnippetsDir  string   `toml:"snippets_dir"`
	FilesDir     string   `toml:"files_dir"`
	GroupFiles   bool     `toml:"group_files"`
	Ignore       []string `toml:"ignore"`
}

// DatabaseConfig represents configuration for the local cache database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "postgres" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
	DSN     string `toml:"dsn,omitempty"`      // only used for type=postgres
}

// PendingConfig represents configuration for the queue of unsent workspace changes.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type PendingConfig struct {
	Type      string `toml:"type"`                 // "memory" or "filesystem"
	QueueFile string `toml:"queue_file,omitempty"` // only used for type=filesystem
}

// LogConfig controls rotation of the log file.
type LogConfig struct {
	MaxSizeMB  int `toml:"max_size_mb"`
	MaxBackups int `toml:"max_backups"`
	MaxAgeDays int `toml:"max_age_days"`
}

// NewConfig creates a Config with default locations under baseDir and a
// workspace rooted at workspaceRoot.
func NewConfig(baseDir, workspaceRoot string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Remote: RemoteConfig{
			Type:           "http",
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		Secret: SecretConfig{
			Type:      "age",
			TokenFile: filepath.Join(baseDir, "token.age"),
		},
		Workspace: WorkspaceConfig{
			Root:         workspaceRoot,
			TemplatesDir: "web-templates",
			SnippetsDir:  "content-snippets",
			FilesDir:     "web-files",
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Pending: PendingConfig{
			Type:      "filesystem",
			QueueFile: filepath.Join(baseDir, "pending.json"),
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
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

// writeToFile replaces the file at path through a temp file in the same
// directory.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	m := &Manager{}
	if err := m.Write(tmp, cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing config at %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites an existing config file, e.g. to remember a portal picked
// during download.
func Save(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file not found at %s: %w", path, err)
	}
	return writeToFile(path, cfg)
}
