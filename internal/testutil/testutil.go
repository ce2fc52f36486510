package testutil

import (
	"testing"

	"github.com/fdbesanto2/portalr/internal/config"
)

// credentialEnv lists the variables that could leak a developer's token
// into a test.
var credentialEnv = []string{"GITHUB_PAT", "GITHUB_TOKEN"}

// overrideEnv lists the portalr variables that redirect backends or paths.
var overrideEnv = []string{
	config.EnvDataPath,
	config.EnvAPITimeout,
	config.EnvDownloadTimeout,
	config.EnvRepositoryURL,
	config.EnvArchiveURL,
}

// NewTestConfig points PORTALR_HOME at a fresh temporary directory, clears
// credential and override variables, and returns the resulting config.
// Everything is restored when the test ends.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()

	t.Setenv(config.EnvPortalrHome, t.TempDir())
	for _, name := range append(credentialEnv, overrideEnv...) {
		t.Setenv(name, "")
	}

	cfg, err := config.DefaultConfig()
	if err != nil {
		t.Fatalf("failed to build test config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("failed to create test home: %v", err)
	}
	return cfg
}
