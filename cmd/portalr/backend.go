package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fdbesanto2/portalr/internal/buildinfo"
	"github.com/fdbesanto2/portalr/internal/config"
	"github.com/fdbesanto2/portalr/internal/httputil"
	"github.com/fdbesanto2/portalr/internal/log"
	"github.com/fdbesanto2/portalr/internal/secrets"
	"github.com/fdbesanto2/portalr/internal/userconfig"
	"github.com/fdbesanto2/portalr/internal/version"
)

// loadUserConfig loads the config file or exits.
func loadUserConfig() *userconfig.Config {
	cfg, err := userconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		exitWithCode(ExitGeneral)
	}
	return cfg
}

// newHTTPClient returns the hardened client identifying as this build.
func newHTTPClient(timeout time.Duration) *http.Client {
	return httputil.NewSecureClient(httputil.ClientOptions{
		Timeout:   timeout,
		UserAgent: buildinfo.UserAgent(),
	})
}

// archiveURL applies PORTALR_ARCHIVE_URL over the config file value.
func archiveURL(cfg *userconfig.Config) string {
	if u := config.GetArchiveURL(); u != "" {
		return u
	}
	if cfg.ArchiveURL != "" {
		return cfg.ArchiveURL
	}
	return config.DefaultArchiveURL
}

func repository(cfg *userconfig.Config) string {
	if cfg.Repository != "" {
		return cfg.Repository
	}
	return config.DefaultRepository
}

// buildCatalog wires the repository and archive sources from the
// environment, the config file and the stored credentials.
func buildCatalog(cfg *userconfig.Config) (*version.Catalog, error) {
	logger := log.Default()
	client := newHTTPClient(config.GetAPITimeout())

	opts := []version.Option{
		version.WithHTTPClient(client),
		version.WithLogger(logger),
	}
	if token, ok := secrets.Lookup(secrets.GitHubPAT); ok {
		opts = append(opts, version.WithToken(token))
	}
	if base := config.GetRepositoryURL(); base != "" {
		opts = append(opts, version.WithBaseURL(base))
	}

	repo, err := version.NewGitHubSource(repository(cfg), opts...)
	if err != nil {
		return nil, err
	}

	var archive version.Source
	a, err := version.NewArchiveSource(archiveURL(cfg),
		version.WithHTTPClient(client), version.WithLogger(logger))
	if err != nil {
		logger.Warn("archive source disabled", "error", err)
	} else {
		archive = a
	}

	return version.NewCatalog(repo, archive, version.WithLogger(logger)), nil
}

// useArchive honours an explicit --archive flag, falling back to the
// use_archive config setting.
func useArchive(cmd *cobra.Command, cfg *userconfig.Config) bool {
	if f := cmd.Flags().Lookup("archive"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("archive")
		return v
	}
	return cfg.UseArchive
}
