package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

const (
	// AppDirectoryName is the per-user application data directory name.
	AppDirectoryName = "classlink"
	// DefaultServerBaseURL is the backend REST root used when no override exists.
	DefaultServerBaseURL = "http://127.0.0.1:8000/api"
	// DefaultSocketURL is the websocket root; the user id path segment is
	// appended at connect time.
	DefaultSocketURL = "ws://127.0.0.1:8000/ws"
	// DefaultPushListenAddr is the loopback address the push worker binds.
	DefaultPushListenAddr = "127.0.0.1:0"
	// DefaultReconnectDelaySeconds is the fixed socket reconnect delay.
	DefaultReconnectDelaySeconds = 5
	// configFileName is the persisted configuration file.
	configFileName = "config.json"
)

// ClientConfig contains persistent local client settings.
type ClientConfig struct {
	InstallID             string `json:"install_id"`
	ServerBaseURL         string `json:"server_base_url"`
	SocketURL             string `json:"socket_url"`
	PushListenAddr        string `json:"push_listen_addr"`
	ReconnectDelaySeconds int    `json:"reconnect_delay_seconds"`
}

// ResolveDataDir returns the OS-aware app data directory.
//
// If CLASSLINK_DATA_DIR is set, its value is used as an explicit override.
func ResolveDataDir() (string, error) {
	if override := os.Getenv("CLASSLINK_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, AppDirectoryName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppDirectoryName), nil
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, AppDirectoryName), nil
	}
}

// ConfigPath returns the full path to config.json for a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// EnsureDataDirectories creates the app data directory if needed.
func EnsureDataDirectories(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("create directory %q: %w", dataDir, err)
	}
	return nil
}

// Load reads and unmarshals config.json from disk.
func Load(path string) (*ClientConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Save marshals and writes config.json to disk.
func Save(path string, cfg *ClientConfig) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// LoadOrCreate ensures the directory and config exist, then returns both.
func LoadOrCreate() (*ClientConfig, string, error) {
	dataDir, err := ResolveDataDir()
	if err != nil {
		return nil, "", err
	}
	if err := EnsureDataDirectories(dataDir); err != nil {
		return nil, "", err
	}

	cfgPath := ConfigPath(dataDir)
	cfg, err := Load(cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}

		cfg = defaultConfig()
		if err := Save(cfgPath, cfg); err != nil {
			return nil, "", err
		}

		return cfg, cfgPath, nil
	}

	if normalizeDefaults(cfg) {
		if err := Save(cfgPath, cfg); err != nil {
			return nil, "", err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, cfgPath, nil
}

func defaultConfig() *ClientConfig {
	return &ClientConfig{
		InstallID:             uuid.NewString(),
		ServerBaseURL:         DefaultServerBaseURL,
		SocketURL:             DefaultSocketURL,
		PushListenAddr:        DefaultPushListenAddr,
		ReconnectDelaySeconds: DefaultReconnectDelaySeconds,
	}
}

func normalizeDefaults(cfg *ClientConfig) bool {
	updated := false

	if cfg.InstallID == "" {
		cfg.InstallID = uuid.NewString()
		updated = true
	}

	if cfg.ServerBaseURL == "" {
		cfg.ServerBaseURL = DefaultServerBaseURL
		updated = true
	}
	if trimmed := strings.TrimRight(cfg.ServerBaseURL, "/"); trimmed != cfg.ServerBaseURL {
		cfg.ServerBaseURL = trimmed
		updated = true
	}

	if cfg.SocketURL == "" {
		cfg.SocketURL = deriveSocketURL(cfg.ServerBaseURL)
		updated = true
	}
	if trimmed := strings.TrimRight(cfg.SocketURL, "/"); trimmed != cfg.SocketURL {
		cfg.SocketURL = trimmed
		updated = true
	}

	if cfg.PushListenAddr == "" {
		cfg.PushListenAddr = DefaultPushListenAddr
		updated = true
	}

	if cfg.ReconnectDelaySeconds <= 0 {
		cfg.ReconnectDelaySeconds = DefaultReconnectDelaySeconds
		updated = true
	}

	return updated
}

// deriveSocketURL maps an http(s) REST root to the ws(s) endpoint root.
func deriveSocketURL(serverBaseURL string) string {
	parsed, err := url.Parse(serverBaseURL)
	if err != nil || parsed.Host == "" {
		return DefaultSocketURL
	}

	scheme := "ws"
	if parsed.Scheme == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, parsed.Host)
}

func validate(cfg *ClientConfig) error {
	for name, value := range map[string]string{
		"server_base_url": cfg.ServerBaseURL,
		"socket_url":      cfg.SocketURL,
	} {
		parsed, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid %s %q: missing scheme or host", name, value)
		}
	}
	return nil
}
