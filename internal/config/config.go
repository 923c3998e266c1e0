// Package config loads and watches the client configuration file.
//
// The file is YAML. Everything is read-mostly: pollers and the stream
// resolver read the latest loaded value, writes happen from the UI
// layer (or not at all for the headless tools).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile identifies one station to connect to. Immutable once a
// session is established; credentials are looked up separately by Name.
type Profile struct {
	Name      string `yaml:"-"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	UseHTTPS  bool   `yaml:"https"`
	VerifyTLS bool   `yaml:"verify_tls"`
}

// BaseURL returns the scheme://host:port root for this profile.
func (p Profile) BaseURL() string {
	scheme := "http"
	if p.UseHTTPS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, p.Host, p.Port)
}

type MonitorConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type HistoryConfig struct {
	Path      string `yaml:"path"`
	KeepDays  int    `yaml:"keep_days"`
}

// Config is the full client configuration.
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`

	PollIntervalCameras  int `yaml:"poll_interval_cameras"`
	PollIntervalAlerts   int `yaml:"poll_interval_alerts"`
	PollIntervalHomeMode int `yaml:"poll_interval_homemode"`

	SnapshotDir string `yaml:"snapshot_dir"`

	// Per-camera live-view settings, keyed by camera ID.
	// camera_protocols selects the transport (see internal/stream),
	// camera_overrides holds direct stream URLs that bypass the server.
	CameraProtocols map[int]string `yaml:"camera_protocols"`
	CameraOverrides map[int]string `yaml:"camera_overrides"`

	Monitor MonitorConfig `yaml:"monitor"`
	NATS    NATSConfig    `yaml:"nats"`
	History HistoryConfig `yaml:"history"`
}

func defaults() Config {
	return Config{
		Profiles:             map[string]Profile{},
		PollIntervalCameras:  30,
		PollIntervalAlerts:   30,
		PollIntervalHomeMode: 60,
		CameraProtocols:      map[int]string{},
		CameraOverrides:      map[int]string{},
		Monitor:              MonitorConfig{ListenAddr: "127.0.0.1:9815"},
		NATS:                 NATSConfig{Subject: "svs.events"},
		History:              HistoryConfig{KeepDays: 30},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/svs-client/config.yaml or the
// equivalent under the home directory.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "svs-client", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "svs-client", "config.yaml")
}

// Load reads the config file at path. A missing file yields defaults,
// not an error; a present but malformed file is an error.
func Load(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("config read: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config parse: %w", err)
	}

	for name, p := range cfg.Profiles {
		p.Name = name
		if p.Port == 0 {
			p.Port = 5001
		}
		cfg.Profiles[name] = p
	}
	if cfg.CameraProtocols == nil {
		cfg.CameraProtocols = map[int]string{}
	}
	if cfg.CameraOverrides == nil {
		cfg.CameraOverrides = map[int]string{}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv lets a handful of settings be overridden per run without
// touching the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SVS_DEFAULT_PROFILE"); v != "" {
		cfg.DefaultProfile = v
	}
	if v := os.Getenv("SVS_MONITOR_ADDR"); v != "" {
		cfg.Monitor.ListenAddr = v
	}
	if v := os.Getenv("SVS_NATS_URL"); v != "" {
		cfg.NATS.URL = v
		cfg.NATS.Enabled = true
	}
	if v := os.Getenv("SVS_POLL_CAMERAS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollIntervalCameras = n
		}
	}
}

// Save writes the config file, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("config write: %w", err)
	}
	return os.Rename(tmp, path)
}

// Store is a concurrency-safe holder for the current Config. The UI
// thread (or the watcher) swaps in new values; everyone else reads.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) Set(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// CameraProtocol returns the configured protocol and direct override
// for one camera. Empty protocol means "auto".
func (s *Store) CameraProtocol(cameraID int) (protocol, override string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.CameraProtocols[cameraID], s.cfg.CameraOverrides[cameraID]
}

// PollInterval returns the configured interval for a feed name.
func (s *Store) PollInterval(feed string) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch feed {
	case "alerts":
		return time.Duration(s.cfg.PollIntervalAlerts) * time.Second
	case "homemode":
		return time.Duration(s.cfg.PollIntervalHomeMode) * time.Second
	default:
		return time.Duration(s.cfg.PollIntervalCameras) * time.Second
	}
}
