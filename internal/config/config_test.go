package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.Poll.Queue = Duration{7 * time.Second}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.Poll.Queue.Duration != 7*time.Second {
		t.Errorf("Poll.Queue = %v, want 7s", loaded.Poll.Queue.Duration)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestResolveDefaultsWhenMissing(t *testing.T) {
	t.Setenv(APIURLEnv, "")
	cfg, err := Resolve(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, DefaultAPIURL)
	}
	if cfg.Timeouts.Connect.Duration != 20*time.Second {
		t.Errorf("connect timeout = %v, want 20s", cfg.Timeouts.Connect.Duration)
	}
	if cfg.Mirror.MessageLogCap != 1000 {
		t.Errorf("MessageLogCap = %d, want 1000", cfg.Mirror.MessageLogCap)
	}
}

func TestResolvePartialFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "ws_url = \"http://backend:4000\"\n\n[poll]\nqr = \"1s\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(APIURLEnv, "http://api.example/api")

	cfg, err := Resolve(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WSURL != "http://backend:4000" {
		t.Errorf("WSURL = %q", cfg.WSURL)
	}
	if cfg.APIURL != "http://api.example/api" {
		t.Errorf("APIURL = %q, want env override", cfg.APIURL)
	}
	if cfg.Poll.QR.Duration != time.Second {
		t.Errorf("Poll.QR = %v, want 1s", cfg.Poll.QR.Duration)
	}
	if cfg.Poll.Queue.Duration != 10*time.Second {
		t.Errorf("Poll.Queue = %v, want default 10s", cfg.Poll.Queue.Duration)
	}
}

func TestResolveMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[timeouts]\nconnect = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(path); err == nil {
		t.Error("Resolve() expected error for bad duration")
	}
}
