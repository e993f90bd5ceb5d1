package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.Telegram = Telegram{APIID: 12345, APIHash: "abc", Phone: "+989123456789"}
	cfg.User.Timezone = "Asia/Tehran"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Telegram.Phone != "+989123456789" {
		t.Errorf("Phone = %q", loaded.Telegram.Phone)
	}
	if loaded.User.Timezone != "Asia/Tehran" {
		t.Errorf("Timezone = %q", loaded.User.Timezone)
	}
	if loaded.Summary.Model != "deepseek/deepseek-chat" {
		t.Errorf("Model = %q, want default preserved", loaded.Summary.Model)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	raw := "[telegram]\napi_id = 1\napi_hash = \"h\"\nphone = \"+1\"\n"
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.MaxMessagesPerChat != 5000 {
		t.Errorf("MaxMessagesPerChat = %d, want 5000", cfg.Store.MaxMessagesPerChat)
	}
	if cfg.Store.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", cfg.Store.BatchSize)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("empty credentials should not validate")
	}
	for _, want := range []string{"api_id", "api_hash", "phone"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	cfg.Telegram = Telegram{APIID: 1, APIHash: "h", Phone: "+1"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	cfg.User.Timezone = "Not/AZone"
	if err := cfg.Validate(); err == nil {
		t.Error("bad timezone should not validate")
	}
}
