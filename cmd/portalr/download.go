package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fdbesanto2/portalr/internal/config"
	"github.com/fdbesanto2/portalr/internal/errmsg"
	"github.com/fdbesanto2/portalr/internal/install"
	"github.com/fdbesanto2/portalr/internal/log"
	"github.com/fdbesanto2/portalr/internal/progress"
	"github.com/fdbesanto2/portalr/internal/version"
)

var (
	downloadPath    string
	downloadVersion string
	downloadArchive bool
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Install a release of the dataset",
	Long: `Download a release and install it as <path>/PortalData.

The version may be "latest", a full version (2.1.0) or major.minor (2.1).
With --archive the latest release is taken from the long-term archive
instead of GitHub; other versions always come from GitHub.

Examples:
  portalr download
  portalr download --path ~/data --version 1.50
  portalr download --archive`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadUserConfig()
		base, err := config.ResolveDataPath(downloadPath, cfg.DataPath)
		if err != nil {
			fail(err, nil)
		}
		errCtx := &errmsg.ErrorContext{DataPath: base}

		catalog, err := buildCatalog(cfg)
		if err != nil {
			fail(err, errCtx)
		}

		var progressOut io.Writer
		if !quietFlag && progress.ShouldShowProgress() {
			progressOut = os.Stderr
		}

		ctx, cancel := signalContext()
		defer cancel()

		printInfof("Installing PortalData (%s) into %s\n", downloadVersion, base)
		result, err := runDownload(ctx, catalog, base, downloadVersion, useArchive(cmd, cfg), progressOut)
		if err != nil {
			fail(err, errCtx)
		}
		printInfof("Installed PortalData %s at %s\n", result.Entry.Version, result.Path)
	},
}

// runDownload installs the release selected by selector under base.
func runDownload(ctx context.Context, resolver install.Resolver, base, selector string, archive bool, progressOut io.Writer) (*install.Result, error) {
	opts := []install.Option{
		install.WithHTTPClient(newHTTPClient(config.GetDownloadTimeout())),
		install.WithLogger(log.Default()),
	}
	if progressOut != nil {
		opts = append(opts, install.WithProgressOutput(progressOut))
	}
	return install.New(resolver, opts...).Install(ctx, base, selector, archive)
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadPath, "path", "p", "", "Base directory for the dataset (default: working directory)")
	downloadCmd.Flags().StringVar(&downloadVersion, "version", version.Latest, "Release to install")
	downloadCmd.Flags().BoolVar(&downloadArchive, "archive", false, "Take the latest release from the archive")
}
