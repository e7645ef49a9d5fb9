// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"

	"github.com/20after4/configdir"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// AppName is used for the config/data directory names and as the
// notification application name.
const AppName = "xiamibox"

// Config represents the application configuration.
type Config struct {
	Browser      BrowserConfig      `yaml:"browser"`
	Window       WindowConfig       `yaml:"window"`
	Store        StoreConfig        `yaml:"store"`
	Notification NotificationConfig `yaml:"notification"`
	IPC          IPCConfig          `yaml:"ipc"`
	MPRIS        MPRISConfig        `yaml:"mpris"`
	Log          LogConfig          `yaml:"log"`
}

// BrowserConfig represents the Chromium host configuration.
type BrowserConfig struct {
	Path           string   `yaml:"path"` // empty: search PATH
	DebugPort      int      `yaml:"debug_port" default:"9229" validate:"gte=1024,lte=65535"`
	UserDataDir    string   `yaml:"user_data_dir"` // empty: <data dir>/browser
	StartupTimeout int      `yaml:"startup_timeout_sec" default:"15" validate:"gte=1,lte=120"`
	ExtraArgs      []string `yaml:"extra_args"`
}

// WindowConfig represents the player window geometry.
type WindowConfig struct {
	Width  int `yaml:"width" default:"1024" validate:"gte=320"`
	Height int `yaml:"height" default:"768" validate:"gte=240"`
}

// StoreConfig represents the track store configuration.
type StoreConfig struct {
	Type     string         `yaml:"type" default:"file" validate:"oneof=file sqlite redis memory"`
	Settings map[string]any `yaml:"settings"`
}

// NotificationConfig represents desktop notification configuration.
type NotificationConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Backend string `yaml:"backend" default:"auto" validate:"oneof=auto dbus log"`
	Icon    string `yaml:"icon" default:"audio-x-generic"`
}

// IPCConfig represents the local control socket configuration.
type IPCConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

// MPRISConfig represents media-key integration configuration.
type MPRISConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

// LogConfig represents file logging configuration.
// Level and output are taken from the command line.
type LogConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" default:"10" validate:"gte=1"`
	MaxBackups int  `yaml:"max_backups" default:"3" validate:"gte=0"`
	MaxAgeDays int  `yaml:"max_age_days" default:"28" validate:"gte=0"`
	Compress   bool `yaml:"compress"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(configdir.LocalConfig(AppName), "config.yaml")
}

// DataDir returns the directory for stored tracks and the browser profile,
// creating it if needed.
func DataDir() (string, error) {
	dir := configdir.LocalConfig(AppName)
	if err := configdir.MakePath(dir); err != nil {
		return "", errors.Wrap(err, "failed to create data directory")
	}
	return dir, nil
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
// A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	var cfg Config

	// Defaults go in first so that an explicit "enabled: false" survives.
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("XIAMIBOX_BROWSER_PATH"); v != "" {
		c.Browser.Path = v
	}
	if v := os.Getenv("XIAMIBOX_STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("XIAMIBOX_REDIS_PASSWORD"); v != "" {
		if c.Store.Settings == nil {
			c.Store.Settings = make(map[string]any)
		}
		c.Store.Settings["password"] = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	_ = defaults.Set(&cfg)
	return &cfg
}
