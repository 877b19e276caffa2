package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
listeners:
  - addr: "127.0.0.1:1080"
    username: alice
    password: secret
  - addr: "127.0.0.1:1081"
    next_proxy: "socks5://10.0.0.1:1080"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Listeners) != 2 {
		t.Fatalf("got %d listeners, want 2", len(cfg.Listeners))
	}
}

func TestLoadConfig_RequiresAtLeastOneListener(t *testing.T) {
	path := writeConfig(t, "listeners: []\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for empty listeners")
	}
}

func TestLoadConfig_RejectsDuplicateAddr(t *testing.T) {
	path := writeConfig(t, `
listeners:
  - addr: "127.0.0.1:1080"
  - addr: "127.0.0.1:1080"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for duplicate addr")
	}
}

func TestLoadConfig_RejectsPasswordWithoutUsername(t *testing.T) {
	path := writeConfig(t, `
listeners:
  - addr: "127.0.0.1:1080"
    password: secret
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for password without username")
	}
}
