// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "TESSERA_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local machines.
	Development Environment = "development"
	// Production is for shared or long-lived stores.
	Production Environment = "production"
)

// Config is the complete Tessera configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	Store    StoreConfig    `yaml:"store"`
	Classify ClassifyConfig `yaml:"classify"`
	Log      LogConfig      `yaml:"log"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Store *StoreConfig `yaml:"store,omitempty"`
	Log   *LogConfig   `yaml:"log,omitempty"`
}

// StoreConfig configures the local object store.
type StoreConfig struct {
	// Root is the store directory.
	Root string `yaml:"root"`

	// ShardBase is the number of shard directories, in [1, 8192].
	// Fixed for the life of a store.
	// Default: 4096
	ShardBase int `yaml:"shard_base"`

	// Compression is auto, none, lz4, or zstd.
	// Default: auto
	Compression string `yaml:"compression"`

	Encryption EncryptionConfig `yaml:"encryption"`
}

// EncryptionConfig configures age encryption of object bodies.
type EncryptionConfig struct {
	// Recipients are age X25519 public keys (age1...). Empty disables
	// encryption of new objects.
	Recipients []string `yaml:"recipients"`

	// IdentityFile is an age identity file for reading encrypted
	// objects.
	IdentityFile string `yaml:"identity_file"`
}

// ClassifyConfig configures the content classifier.
type ClassifyConfig struct {
	// ChunkSize is the read size in bytes.
	// Default: 65536
	ChunkSize int `yaml:"chunk_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`
}

var (
	compressionNames = []string{"auto", "none", "lz4", "zstd"}
	levelNames       = []string{"debug", "info", "warn", "error"}
)

// Default returns the default configuration, the base that a config
// file is merged over.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Environment: Development,
		Store: StoreConfig{
			Root:        filepath.Join(homeDir, ".cache", "tessera"),
			ShardBase:   4096,
			Compression: "auto",
		},
		Classify: ClassifyConfig{ChunkSize: 64 * 1024},
		Log:      LogConfig{Level: "info"},
	}
}

// Load loads configuration from the file named by TESSERA_CONFIG. It
// fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your tessera.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.ExpandVariables()
	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Store: &StoreConfig{Compression: "zstd"},
				Log:   &LogConfig{Level: "warn"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if store := overrides.Store; store != nil {
		if store.Root != "" {
			c.Store.Root = store.Root
		}
		if store.ShardBase != 0 {
			c.Store.ShardBase = store.ShardBase
		}
		if store.Compression != "" {
			c.Store.Compression = store.Compression
		}
		if len(store.Encryption.Recipients) > 0 {
			c.Store.Encryption.Recipients = store.Encryption.Recipients
		}
		if store.Encryption.IdentityFile != "" {
			c.Store.Encryption.IdentityFile = store.Encryption.IdentityFile
		}
	}

	if overrides.Log != nil && overrides.Log.Level != "" {
		c.Log.Level = overrides.Log.Level
	}
}

// ExpandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields. LoadFile calls it; callers building a Config by hand may too.
func (c *Config) ExpandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Store.Root = expandVars(c.Store.Root, vars)
	vars["TESSERA_ROOT"] = c.Store.Root

	c.Store.Encryption.IdentityFile = expandVars(c.Store.Encryption.IdentityFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]

		// Provided vars first, then the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Store.Root == "" {
		errs = append(errs, errors.New("store.root is required"))
	}
	if c.Store.ShardBase < 1 || c.Store.ShardBase > 8192 {
		errs = append(errs, fmt.Errorf("store.shard_base must be in [1, 8192], got %d", c.Store.ShardBase))
	}
	if !slices.Contains(compressionNames, c.Store.Compression) {
		errs = append(errs, fmt.Errorf("store.compression must be one of: %v", compressionNames))
	}
	for _, recipient := range c.Store.Encryption.Recipients {
		if !strings.HasPrefix(recipient, "age1") {
			errs = append(errs, fmt.Errorf("store.encryption.recipients: %q is not an age public key", recipient))
		}
	}
	if c.Classify.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("classify.chunk_size must not be negative, got %d", c.Classify.ChunkSize))
	}
	if !slices.Contains(levelNames, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levelNames))
	}

	return errors.Join(errs...)
}

// SlogLevel returns Log.Level as a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
