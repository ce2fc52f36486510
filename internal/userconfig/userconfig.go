// Package userconfig provides user configuration management for portalr.
// Configuration is stored in $PORTALR_HOME/config.toml and can be modified
// via the `portalr config` command.
package userconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/fdbesanto2/portalr/internal/config"
)

// secretsPrefix marks config keys that address the [secrets] table.
const secretsPrefix = "secrets."

// Config represents user-configurable settings.
type Config struct {
	// DataPath is the default base directory the dataset is installed under.
	// Empty means the working directory.
	DataPath string `toml:"data_path,omitempty"`

	// Repository is the GitHub repository publishing releases, as owner/name.
	Repository string `toml:"repository"`

	// ArchiveURL is the long-term archive landing page for the latest release.
	ArchiveURL string `toml:"archive_url"`

	// UseArchive makes the archive backend the default for "latest" requests.
	UseArchive bool `toml:"use_archive"`

	// Secrets holds tokens keyed by canonical secret name. Environment
	// variables take precedence (see internal/secrets).
	Secrets map[string]string `toml:"secrets,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Repository: config.DefaultRepository,
		ArchiveURL: config.DefaultArchiveURL,
	}
}

// Load reads the config file and returns the configuration.
// Returns default values if the file doesn't exist.
// Returns an error only for file parsing issues, not missing files.
func Load() (*Config, error) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return DefaultConfig(), nil
	}

	return loadFromPath(cfg.ConfigFile)
}

// loadFromPath reads config from a specific file path (for testing).
func loadFromPath(path string) (*Config, error) {
	userCfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return userCfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), userCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return userCfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	return c.saveToPath(cfg.ConfigFile)
}

// saveToPath writes config to path through a temp file and rename so a
// crash never leaves a truncated file. The file holds secrets, so it is 0600.
func (c *Config) saveToPath(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	if err := toml.NewEncoder(tmp).Encode(c); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// Get returns the value of a config key as a string.
// Returns empty string and false if the key doesn't exist.
func (c *Config) Get(key string) (string, bool) {
	key = strings.ToLower(key)
	if name, ok := strings.CutPrefix(key, secretsPrefix); ok {
		val, exists := c.Secrets[name]
		if !exists || val == "" {
			return "", false
		}
		return val, true
	}

	switch key {
	case "data_path":
		return c.DataPath, true
	case "repository":
		return c.Repository, true
	case "archive_url":
		return c.ArchiveURL, true
	case "use_archive":
		return strconv.FormatBool(c.UseArchive), true
	default:
		return "", false
	}
}

// Set updates a config value from a string.
// Returns an error if the key doesn't exist or the value is invalid.
func (c *Config) Set(key, value string) error {
	key = strings.ToLower(key)
	if name, ok := strings.CutPrefix(key, secretsPrefix); ok {
		if name == "" {
			return fmt.Errorf("secret name must not be empty")
		}
		if c.Secrets == nil {
			c.Secrets = make(map[string]string)
		}
		c.Secrets[name] = value
		return nil
	}

	switch key {
	case "data_path":
		c.DataPath = value
		return nil
	case "repository":
		owner, name, found := strings.Cut(value, "/")
		if !found || owner == "" || name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("invalid value for repository: expected owner/name")
		}
		c.Repository = value
		return nil
	case "archive_url":
		if !strings.HasPrefix(value, "https://") && !strings.HasPrefix(value, "http://") {
			return fmt.Errorf("invalid value for archive_url: must be an http(s) URL")
		}
		c.ArchiveURL = value
		return nil
	case "use_archive":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for use_archive: must be true or false")
		}
		c.UseArchive = b
		return nil
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}

// AvailableKeys returns a list of all configurable keys with descriptions.
// Secret keys are addressed as secrets.<name> and are not listed.
func AvailableKeys() map[string]string {
	return map[string]string{
		"data_path":   "Default base directory for the dataset (empty = working directory)",
		"repository":  "GitHub repository publishing releases (owner/name)",
		"archive_url": "Archive landing page used with --archive",
		"use_archive": "Use the archive backend for latest-version requests (true/false)",
	}
}
