package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/fdbesanto2/portalr/internal/progress"
	"github.com/fdbesanto2/portalr/internal/version"
)

var (
	versionsJSON    bool
	versionsArchive bool
	latestJSON      bool
	latestArchive   bool
)

// releaseOutput is the JSON form of a release.
type releaseOutput struct {
	Tag     string `json:"tag"`
	Version string `json:"version"`
	URL     string `json:"url"`
}

func toReleaseOutput(e version.ReleaseEntry) releaseOutput {
	return releaseOutput{Tag: e.Tag, Version: e.Version.String(), URL: e.URL}
}

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List published dataset releases",
	Long: `List every release the backend reports, newest first.

With --archive only the release held by the archive is listed.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadUserConfig()
		catalog, err := buildCatalog(cfg)
		if err != nil {
			fail(err, nil)
		}

		ctx, cancel := signalContext()
		defer cancel()

		releases, err := withSpinner("Fetching versions...", func() ([]releaseOutput, error) {
			return listReleases(ctx, catalog, useArchive(cmd, cfg))
		})
		if err != nil {
			fail(err, nil)
		}

		if versionsJSON {
			printJSON(struct {
				Versions []releaseOutput `json:"versions"`
			}{releases})
			return
		}

		if len(releases) == 0 {
			printInfo("No releases found.")
			return
		}
		for _, r := range releases {
			printInfof("  %-10s %s\n", r.Version, r.Tag)
		}
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the latest dataset release",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadUserConfig()
		catalog, err := buildCatalog(cfg)
		if err != nil {
			fail(err, nil)
		}

		ctx, cancel := signalContext()
		defer cancel()

		entry, err := withSpinner("Resolving latest release...", func() (version.ReleaseEntry, error) {
			return catalog.Latest(ctx, useArchive(cmd, cfg))
		})
		if err != nil {
			fail(err, nil)
		}

		if latestJSON {
			printJSON(toReleaseOutput(entry))
			return
		}
		printInfof("%s (tag %s)\n", entry.Version, entry.Tag)
		printInfof("  %s\n", entry.URL)
	},
}

// withSpinner runs fn while a spinner is shown on stderr. The spinner is
// only animated on a terminal and never in quiet mode.
func withSpinner[T any](message string, fn func() (T, error)) (T, error) {
	if quietFlag {
		return fn()
	}
	s := progress.NewSpinner(os.Stderr)
	s.Start(message)
	defer s.Stop()
	return fn()
}

// listReleases returns the selected backend's releases in output form.
func listReleases(ctx context.Context, catalog *version.Catalog, archive bool) ([]releaseOutput, error) {
	entries, err := catalog.ListAll(ctx, archive)
	if err != nil {
		return nil, err
	}
	out := make([]releaseOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, toReleaseOutput(e))
	}
	return out, nil
}

func init() {
	versionsCmd.Flags().BoolVar(&versionsJSON, "json", false, "Output in JSON format")
	versionsCmd.Flags().BoolVar(&versionsArchive, "archive", false, "List the archive's release instead")
	latestCmd.Flags().BoolVar(&latestJSON, "json", false, "Output in JSON format")
	latestCmd.Flags().BoolVar(&latestArchive, "archive", false, "Ask the archive instead of GitHub")
}
