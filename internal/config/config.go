package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk settings file. Durations are stored as Go duration
// strings ("10s", "3m20s") and parsed into the typed fields on load.
type Config struct {
	Theme         string `toml:"theme"`
	DefaultRouter string `toml:"default_router"`
	MaxHistory    int    `toml:"max_history"`
	LogLevel      string `toml:"log_level"`
	MetricsAddr   string `toml:"metrics_addr"`

	PollInterval   time.Duration `toml:"-"`
	TokenValidity  time.Duration `toml:"-"`
	RequestTimeout time.Duration `toml:"-"`

	PollIntervalStr   string `toml:"poll_interval"`
	TokenValidityStr  string `toml:"token_validity"`
	RequestTimeoutStr string `toml:"request_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Theme:             "solarized-dark",
		MaxHistory:        360,
		LogLevel:          "info",
		PollInterval:      10 * time.Second,
		TokenValidity:     200 * time.Second,
		RequestTimeout:    10 * time.Second,
		PollIntervalStr:   "10s",
		TokenValidityStr:  "3m20s",
		RequestTimeoutStr: "10s",
	}
}

// LoadConfig reads path, falling back to defaults when the file does not
// exist. Fields missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, d := range cfg.durations() {
		if *d.str == "" {
			continue
		}
		v, err := time.ParseDuration(*d.str)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %s: %w", path, d.key, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("parse %s: %s must be positive", path, d.key)
		}
		*d.val = v
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating the parent directory.
func SaveConfig(cfg *Config, path string) error {
	for _, d := range cfg.durations() {
		*d.str = d.val.String()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

type durationField struct {
	key string
	str *string
	val *time.Duration
}

func (c *Config) durations() []durationField {
	return []durationField{
		{"poll_interval", &c.PollIntervalStr, &c.PollInterval},
		{"token_validity", &c.TokenValidityStr, &c.TokenValidity},
		{"request_timeout", &c.RequestTimeoutStr, &c.RequestTimeout},
	}
}
