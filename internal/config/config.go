package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for stockbook.
type Config struct {
	BaseDir string        `toml:"base_dir"`
	LogDir  string        `toml:"log_dir"`
	Store   StoreConfig   `toml:"store"`
	Backup  BackupConfig  `toml:"backup"`
	Session SessionConfig `toml:"session"`
}

// StoreConfig holds settings for the embedded store file.
type StoreConfig struct {
	Filename string `toml:"filename"`
}

// BackupConfig holds the snapshot naming and scheduling settings.
type BackupConfig struct {
	DirName               string `toml:"dir_name"`
	Prefix                string `toml:"prefix"`
	Extension             string `toml:"extension"`
	MaxCount              int    `toml:"max_count"`
	IntervalHours         int    `toml:"interval_hours"`
	StartupThresholdHours int    `toml:"startup_threshold_hours"`
}

// SessionConfig holds session issuance and cleanup settings.
type SessionConfig struct {
	ExpiryDays         int  `toml:"expiry_days"`
	SweepIntervalHours int  `toml:"sweep_interval_hours"`
	RememberMeEnabled  bool `toml:"remember_me_enabled"`
}

// NewConfig creates a new Config rooted at baseDir with default values.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Filename: "stockbook.db",
		},
		Backup: BackupConfig{
			DirName:               "backups",
			Prefix:                "stockbook-backup",
			Extension:             "db",
			MaxCount:              10,
			IntervalHours:         24,
			StartupThresholdHours: 24,
		},
		Session: SessionConfig{
			ExpiryDays:         30,
			SweepIntervalHours: 1,
			RememberMeEnabled:  true,
		},
	}
}

// StorePath returns the absolute path of the store file.
func (c *Config) StorePath() string {
	return filepath.Join(c.BaseDir, c.Store.Filename)
}

// BackupDir returns the absolute path of the snapshot directory.
func (c *Config) BackupDir() string {
	return filepath.Join(c.BaseDir, c.Backup.DirName)
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
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
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

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
