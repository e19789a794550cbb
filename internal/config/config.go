// Package config loads porenet settings from a YAML file with environment
// overrides.
//
// Config file locations (priority order):
//  1. $PORENET_CONFIG
//  2. ./porenet.yaml
//
// Every setting may then be overridden by a PORENET_* variable; see
// ApplyEnv.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path.
	EnvConfigPath = "PORENET_CONFIG"
	// ConfigFileName is the default config file name.
	ConfigFileName = "porenet.yaml"
)

// Config is the root configuration document.
type Config struct {
	Storage       Storage `yaml:"storage"`
	Blob          Blob    `yaml:"blob"`
	Log           Log     `yaml:"log"`
	Interpolation string  `yaml:"interpolation"`
}

// Storage selects the snapshot persistence backend.
type Storage struct {
	Driver      string `yaml:"driver"` // memory|sqlite|postgres
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Blob selects the archive object store.
type Blob struct {
	Driver string `yaml:"driver"` // fs|s3|memory
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// S3 holds the S3 / MinIO connection settings. Credentials fall back to the
// default AWS chain when AccessKeyID is empty.
type S3 struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|text
}

// Load finds and loads the config file, or returns defaults if none is
// found. Environment overrides are applied in both cases.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		cfg.ApplyEnv(os.LookupEnv)
		return cfg, "", nil
	}
	cfg, path, err := LoadFromPath(path)
	if err != nil {
		return nil, path, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, path, nil
}

// LoadFromPath loads config from a specific path without environment
// overrides.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// Save writes the config to path.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "./porenet.db"
	}
	if c.Blob.Driver == "" {
		c.Blob.Driver = "fs"
	}
	if c.Blob.FSRoot == "" {
		c.Blob.FSRoot = "./blobdata"
	}
	if c.Blob.S3.Region == "" {
		c.Blob.S3.Region = "us-east-1"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Interpolation == "" {
		c.Interpolation = "mean"
	}
}

// Validate rejects unknown driver and mode names.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "s3", "memory":
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	switch c.Interpolation {
	case "mean", "harmonic":
	default:
		return fmt.Errorf("unknown interpolation %q", c.Interpolation)
	}
	return nil
}

// FindConfigPath returns the first existing config file, or "".
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}
	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
