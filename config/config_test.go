package config

import (
	"path/filepath"
	"testing"
)

func TestLoadOrCreateCreatesAndReloadsConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("CLASSLINK_DATA_DIR", tempDir)

	firstCfg, firstPath, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("first LoadOrCreate failed: %v", err)
	}
	if firstCfg.InstallID == "" {
		t.Fatalf("expected non-empty install ID")
	}
	if firstCfg.ServerBaseURL != DefaultServerBaseURL {
		t.Fatalf("expected default server base URL %q, got %q", DefaultServerBaseURL, firstCfg.ServerBaseURL)
	}
	if firstCfg.ReconnectDelaySeconds != DefaultReconnectDelaySeconds {
		t.Fatalf("expected default reconnect delay %d, got %d", DefaultReconnectDelaySeconds, firstCfg.ReconnectDelaySeconds)
	}

	expectedConfigPath := filepath.Join(tempDir, "config.json")
	if firstPath != expectedConfigPath {
		t.Fatalf("expected config path %q, got %q", expectedConfigPath, firstPath)
	}

	secondCfg, secondPath, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("second LoadOrCreate failed: %v", err)
	}

	if secondPath != firstPath {
		t.Fatalf("expected config path to be stable, got %q then %q", firstPath, secondPath)
	}
	if secondCfg.InstallID != firstCfg.InstallID {
		t.Fatalf("expected stable install ID, got %q then %q", firstCfg.InstallID, secondCfg.InstallID)
	}
}

func TestLoadOrCreateNormalizesPartialConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("CLASSLINK_DATA_DIR", tempDir)

	if err := EnsureDataDirectories(tempDir); err != nil {
		t.Fatalf("EnsureDataDirectories failed: %v", err)
	}

	partial := &ClientConfig{
		ServerBaseURL: "https://learn.example.com/api/",
	}
	if err := Save(ConfigPath(tempDir), partial); err != nil {
		t.Fatalf("Save partial config failed: %v", err)
	}

	cfg, _, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if cfg.InstallID == "" {
		t.Fatalf("expected install ID to be filled in")
	}
	if cfg.ServerBaseURL != "https://learn.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.ServerBaseURL)
	}
	if cfg.SocketURL != "wss://learn.example.com/ws" {
		t.Fatalf("expected socket URL derived from https base, got %q", cfg.SocketURL)
	}
	if cfg.ReconnectDelaySeconds != DefaultReconnectDelaySeconds {
		t.Fatalf("expected reconnect delay default, got %d", cfg.ReconnectDelaySeconds)
	}
}

func TestLoadOrCreateRejectsInvalidURLs(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("CLASSLINK_DATA_DIR", tempDir)

	if err := EnsureDataDirectories(tempDir); err != nil {
		t.Fatalf("EnsureDataDirectories failed: %v", err)
	}

	broken := &ClientConfig{
		InstallID:             "install-1",
		ServerBaseURL:         "not-a-url",
		SocketURL:             "ws://ok.example.com/ws",
		PushListenAddr:        DefaultPushListenAddr,
		ReconnectDelaySeconds: 5,
	}
	if err := Save(ConfigPath(tempDir), broken); err != nil {
		t.Fatalf("Save broken config failed: %v", err)
	}

	if _, _, err := LoadOrCreate(); err == nil {
		t.Fatal("expected error for config without scheme or host")
	}
}
