// Package secrets resolves tokens at the process boundary.
//
// Secrets are resolved by checking environment variables first, then the
// [secrets] section in $PORTALR_HOME/config.toml. Library packages never call
// into this package; the CLI resolves a token once and passes it explicitly
// to the release sources.
package secrets

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fdbesanto2/portalr/internal/userconfig"
)

// KeyInfo describes a registered secret for external consumers.
type KeyInfo struct {
	Name    string
	EnvVars []string
	Desc    string
}

var (
	configOnce  sync.Once
	cachedCfg   *userconfig.Config
	configError error
)

// getConfig returns the userconfig, loading it lazily on first use.
func getConfig() (*userconfig.Config, error) {
	configOnce.Do(func() {
		cachedCfg, configError = userconfig.Load()
	})
	return cachedCfg, configError
}

// ResetConfig resets the cached config so the next lookup reloads from disk.
// This is intended for testing only.
func ResetConfig() {
	configOnce = sync.Once{}
	cachedCfg = nil
	configError = nil
}

// Lookup resolves a secret by name and reports whether any source had a
// value. Unknown keys report false.
func Lookup(name string) (string, bool) {
	spec, ok := knownKeys[name]
	if !ok {
		return "", false
	}

	for _, env := range spec.EnvVars {
		if val := os.Getenv(env); val != "" {
			return val, true
		}
	}

	cfg, err := getConfig()
	if err == nil && cfg != nil && cfg.Secrets != nil {
		if val, ok := cfg.Secrets[name]; ok && val != "" {
			return val, true
		}
	}
	return "", false
}

// Get resolves a secret by name, returning an error with guidance when the
// key is unknown or no source has a value set.
func Get(name string) (string, error) {
	spec, ok := knownKeys[name]
	if !ok {
		return "", fmt.Errorf("unknown secret key: %q", name)
	}
	if val, ok := Lookup(name); ok {
		return val, nil
	}

	envList := strings.Join(spec.EnvVars, " or ")
	return "", fmt.Errorf(
		"%s not configured. Set the %s environment variable, or add %s to [secrets] in $PORTALR_HOME/config.toml",
		name, envList, name,
	)
}

// IsSet checks whether a secret is available without returning its value.
func IsSet(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// KnownKeys returns metadata for all registered secrets, sorted by name.
func KnownKeys() []KeyInfo {
	keys := make([]KeyInfo, 0, len(knownKeys))
	for name, spec := range knownKeys {
		keys = append(keys, KeyInfo{
			Name:    name,
			EnvVars: spec.EnvVars,
			Desc:    spec.Desc,
		})
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Name < keys[j].Name
	})
	return keys
}
