package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// EnvPortalrHome overrides the default portalr home directory (~/.portalr).
	EnvPortalrHome = "PORTALR_HOME"

	// EnvDataPath sets the default base directory the dataset is installed under.
	EnvDataPath = "PORTALR_DATA_PATH"

	// EnvAPITimeout configures the timeout for release API and landing page requests.
	EnvAPITimeout = "PORTALR_API_TIMEOUT"

	// EnvDownloadTimeout configures the timeout for artifact downloads.
	EnvDownloadTimeout = "PORTALR_DOWNLOAD_TIMEOUT"

	// EnvRepositoryURL overrides the GitHub API base URL (GitHub Enterprise, tests).
	EnvRepositoryURL = "PORTALR_REPOSITORY_URL"

	// EnvArchiveURL overrides the archive landing page URL.
	EnvArchiveURL = "PORTALR_ARCHIVE_URL"

	// DefaultAPITimeout is the default timeout for API requests (30 seconds)
	DefaultAPITimeout = 30 * time.Second

	// DefaultDownloadTimeout is the default timeout for a full artifact download (10 minutes)
	DefaultDownloadTimeout = 10 * time.Minute

	// DefaultRepository is the GitHub repository publishing dataset releases.
	DefaultRepository = "weecology/PortalData"

	// DefaultArchiveURL is the long-term archive landing page for the latest release.
	DefaultArchiveURL = "https://zenodo.org/records/1215988"
)

// DefaultHomeOverride is used in place of ~/.portalr when PORTALR_HOME is unset.
// Tests set it to a temporary directory.
var DefaultHomeOverride string

// GetAPITimeout returns the configured API timeout from PORTALR_API_TIMEOUT.
// If not set or invalid, returns DefaultAPITimeout (30 seconds).
// Accepts duration strings like "30s", "1m", "2m30s".
func GetAPITimeout() time.Duration {
	return durationFromEnv(EnvAPITimeout, DefaultAPITimeout, 1*time.Second, 10*time.Minute)
}

// GetDownloadTimeout returns the configured artifact download timeout from
// PORTALR_DOWNLOAD_TIMEOUT. If not set or invalid, returns DefaultDownloadTimeout.
func GetDownloadTimeout() time.Duration {
	return durationFromEnv(EnvDownloadTimeout, DefaultDownloadTimeout, 10*time.Second, 2*time.Hour)
}

// durationFromEnv parses a duration from the named variable, warning on stderr
// and falling back to def when unparseable, and clamping to [lo, hi].
func durationFromEnv(name string, def, lo, hi time.Duration) time.Duration {
	envValue := os.Getenv(name)
	if envValue == "" {
		return def
	}

	duration, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			name, envValue, def)
		return def
	}

	if duration < lo {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum %v\n",
			name, duration, lo)
		return lo
	}
	if duration > hi {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum %v\n",
			name, duration, hi)
		return hi
	}

	return duration
}

// GetRepositoryURL returns the GitHub API base URL override, or "" for the public API.
func GetRepositoryURL() string {
	return os.Getenv(EnvRepositoryURL)
}

// GetArchiveURL returns the archive landing page override, or "" when unset.
func GetArchiveURL() string {
	return os.Getenv(EnvArchiveURL)
}

// Config holds the filesystem locations portalr uses for its own state.
// The dataset itself lives wherever the caller installs it.
type Config struct {
	HomeDir    string // $PORTALR_HOME
	ConfigFile string // $PORTALR_HOME/config.toml
}

// DefaultConfig returns the configuration rooted at $PORTALR_HOME or ~/.portalr.
func DefaultConfig() (*Config, error) {
	home := os.Getenv(EnvPortalrHome)
	if home == "" {
		if DefaultHomeOverride != "" {
			home = DefaultHomeOverride
		} else {
			userHome, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get user home directory: %w", err)
			}
			home = filepath.Join(userHome, ".portalr")
		}
	}

	return &Config{
		HomeDir:    home,
		ConfigFile: filepath.Join(home, "config.toml"),
	}, nil
}

// EnsureDirectories creates the portalr home directory if it does not exist.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.HomeDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.HomeDir, err)
	}
	return nil
}

// ResolveDataPath picks the dataset base directory. Precedence: the explicit
// flag value, PORTALR_DATA_PATH, the config file value, then the working
// directory. The result is made absolute.
func ResolveDataPath(flagValue, configValue string) (string, error) {
	candidates := []string{flagValue, os.Getenv(EnvDataPath), configValue}
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(expandHome(c))
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return wd, nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	if len(p) < 2 || p[0] != '~' || p[1] != '/' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
