package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "nested", "config.yaml")

	data := []byte("log:\n  level: debug\n")
	if err := atomicWrite(testPath, data); err != nil {
		t.Fatalf("atomicWrite failed: %v", err)
	}

	got, err := os.ReadFile(testPath)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("content mismatch: got %q, want %q", got, data)
	}

	if _, err := os.Stat(testPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
}

func TestBackupConfig(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "config.yaml")

	original := []byte("chat:\n  max_history: 4\n")
	if err := os.WriteFile(testPath, original, 0644); err != nil {
		t.Fatalf("failed to create original config: %v", err)
	}

	if err := backupConfig(testPath); err != nil {
		t.Fatalf("backupConfig failed: %v", err)
	}

	bak, err := os.ReadFile(testPath + ".bak")
	if err != nil {
		t.Fatalf("failed to read backup: %v", err)
	}
	if string(bak) != string(original) {
		t.Errorf("backup content mismatch: got %q, want %q", bak, original)
	}
}

func TestBackupConfigFirstRun(t *testing.T) {
	testPath := filepath.Join(t.TempDir(), "config.yaml")

	if err := backupConfig(testPath); err != nil {
		t.Fatalf("backupConfig failed on first run: %v", err)
	}
	if _, err := os.Stat(testPath + ".bak"); !os.IsNotExist(err) {
		t.Error("backup should not exist on first run")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	testPath := filepath.Join(home, "config.yaml")

	cfg := NewConfig(home)
	cfg.Backend.Model = "gemma3:27b"
	cfg.Cache.FreshnessTTL = 6 * time.Hour
	cfg.Knowledge.Mode = "hybrid"

	if err := Save(cfg, testPath, nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(testPath, home)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Backend.Model != "gemma3:27b" {
		t.Errorf("model = %q", loaded.Backend.Model)
	}
	if loaded.Cache.FreshnessTTL != 6*time.Hour {
		t.Errorf("freshness ttl = %v", loaded.Cache.FreshnessTTL)
	}
	if loaded.Knowledge.Mode != "hybrid" {
		t.Errorf("mode = %q", loaded.Knowledge.Mode)
	}
}

func TestSaveCreatesBackup(t *testing.T) {
	home := t.TempDir()
	testPath := filepath.Join(home, "config.yaml")

	cfg := NewConfig(home)
	if err := Save(cfg, testPath, nil); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	cfg.Server.Addr = "0.0.0.0:8080"
	if err := Save(cfg, testPath, nil); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	bak, err := os.ReadFile(testPath + ".bak")
	if err != nil {
		t.Fatalf("backup not created: %v", err)
	}
	if strings.Contains(string(bak), "0.0.0.0:8080") {
		t.Error("backup should hold the previous version")
	}

	current, _ := os.ReadFile(testPath)
	if !strings.Contains(string(current), "0.0.0.0:8080") {
		t.Error("config should hold the new address")
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	home := t.TempDir()
	testPath := filepath.Join(home, "config.yaml")

	cfg := NewConfig(home)
	cfg.Chat.MaxHistory = 1

	err := Save(cfg, testPath, nil)
	var invalidErr *InvalidConfigError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}
	if invalidErr.Path != testPath {
		t.Errorf("path = %q, want %q", invalidErr.Path, testPath)
	}
	if _, err := os.Stat(testPath); !os.IsNotExist(err) {
		t.Error("invalid config should not be written")
	}
}
