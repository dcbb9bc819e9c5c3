package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/VikingOwl91/validator-guard/internal/security"
	"github.com/VikingOwl91/validator-guard/internal/workerbin"
	"gopkg.in/yaml.v3"
)

const (
	defaultWorker    = "sandbox-worker"
	defaultCachePath = "/var/cache/validator-guard"
)

type WorkerConfig struct {
	Path         string   `yaml:"path"`
	Hash         string   `yaml:"hash,omitempty"`
	AllowedPaths []string `yaml:"allowed_paths,omitempty"`
}

type AuditConfig struct {
	LogPaths []string `yaml:"log_paths,omitempty"`

	// MaxReadBytes caps the log data read per job. Zero reads everything.
	MaxReadBytes int64 `yaml:"max_read_bytes,omitempty"`
}

type Config struct {
	// SecureValidatorMode defaults to true. Turning it off must be explicit.
	SecureValidatorMode *bool        `yaml:"secure_validator_mode,omitempty"`
	Worker              WorkerConfig `yaml:"worker"`
	CachePath           string       `yaml:"cache_path"`
	Audit               AuditConfig  `yaml:"audit,omitempty"`
	LogLevel            string       `yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Validate()
	return cfg
}

// Load reads and validates the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate fills defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.SecureValidatorMode == nil {
		secure := true
		c.SecureValidatorMode = &secure
	}
	if c.Worker.Path == "" {
		c.Worker.Path = defaultWorker
	}
	if c.Worker.Hash != "" {
		if _, _, err := workerbin.ParseHash(c.Worker.Hash); err != nil {
			return fmt.Errorf("worker.hash: %w", err)
		}
	}
	if c.CachePath == "" {
		c.CachePath = defaultCachePath
	}
	if len(c.Audit.LogPaths) == 0 {
		c.Audit.LogPaths = append([]string(nil), security.DefaultAuditLogPaths...)
	}
	if c.Audit.MaxReadBytes < 0 {
		return fmt.Errorf("audit.max_read_bytes must not be negative, got %d", c.Audit.MaxReadBytes)
	}

	switch c.LogLevel {
	case "":
		c.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}

	return nil
}

// SecureMode reports whether Secure Validator Mode is required.
func (c *Config) SecureMode() bool {
	return c.SecureValidatorMode == nil || *c.SecureValidatorMode
}
