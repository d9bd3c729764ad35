package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/stockbook",
		LogDir:  "/home/user/.local/share/stockbook/log",
		Store:   StoreConfig{Filename: "inventory.db"},
		Backup: BackupConfig{
			DirName:               "snapshots",
			Prefix:                "inv-backup",
			Extension:             "db",
			MaxCount:              5,
			IntervalHours:         12,
			StartupThresholdHours: 48,
		},
		Session: SessionConfig{
			ExpiryDays:         7,
			SweepIntervalHours: 2,
			RememberMeEnabled:  false,
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Store.Filename != "inventory.db" {
		t.Errorf("Store.Filename = %q, want %q", got.Store.Filename, "inventory.db")
	}
	if got.Backup.Prefix != "inv-backup" {
		t.Errorf("Backup.Prefix = %q, want %q", got.Backup.Prefix, "inv-backup")
	}
	if got.Backup.MaxCount != 5 {
		t.Errorf("Backup.MaxCount = %d, want 5", got.Backup.MaxCount)
	}
	if got.Backup.StartupThresholdHours != 48 {
		t.Errorf("Backup.StartupThresholdHours = %d, want 48", got.Backup.StartupThresholdHours)
	}
	if got.Session.ExpiryDays != 7 {
		t.Errorf("Session.ExpiryDays = %d, want 7", got.Session.ExpiryDays)
	}
	if got.Session.RememberMeEnabled {
		t.Error("Session.RememberMeEnabled = true, want false")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/stockbook")

	if cfg.BaseDir != "/data/stockbook" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/stockbook")
	}
	if cfg.LogDir != filepath.Join("/data/stockbook", "log") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Store.Filename != "stockbook.db" {
		t.Errorf("Store.Filename = %q, want %q", cfg.Store.Filename, "stockbook.db")
	}
	if cfg.Backup.MaxCount != 10 {
		t.Errorf("Backup.MaxCount = %d, want 10", cfg.Backup.MaxCount)
	}
	if cfg.Backup.IntervalHours != 24 {
		t.Errorf("Backup.IntervalHours = %d, want 24", cfg.Backup.IntervalHours)
	}
	if cfg.Session.ExpiryDays != 30 {
		t.Errorf("Session.ExpiryDays = %d, want 30", cfg.Session.ExpiryDays)
	}
	if !cfg.Session.RememberMeEnabled {
		t.Error("Session.RememberMeEnabled = false, want true")
	}

	if cfg.StorePath() != filepath.Join("/data/stockbook", "stockbook.db") {
		t.Errorf("StorePath() = %q", cfg.StorePath())
	}
	if cfg.BackupDir() != filepath.Join("/data/stockbook", "backups") {
		t.Errorf("BackupDir() = %q", cfg.BackupDir())
	}
}

func TestInit(t *testing.T) {
	t.Run("writes a new config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf", "stockbook.toml")
		cfg := NewConfig("/data/stockbook")

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.BaseDir != cfg.BaseDir {
			t.Errorf("BaseDir = %q, want %q", got.BaseDir, cfg.BaseDir)
		}
	})

	t.Run("refuses to overwrite an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stockbook.toml")
		if err := os.WriteFile(path, []byte("base_dir = '/existing'"), 0644); err != nil {
			t.Fatalf("writing existing file: %v", err)
		}

		if err := Init(path, NewConfig("/data/stockbook")); err == nil {
			t.Error("Init() on existing file = nil, want error")
		}
	})
}

func TestReadFromFile_Missing(t *testing.T) {
	if _, err := ReadFromFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("ReadFromFile() on missing file = nil, want error")
	}
}
