package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/fdbesanto2/portalr/internal/config"
	"github.com/fdbesanto2/portalr/internal/errmsg"
	"github.com/fdbesanto2/portalr/internal/install"
	"github.com/fdbesanto2/portalr/internal/log"
	"github.com/fdbesanto2/portalr/internal/version"
)

var (
	checkPath string
	checkJSON bool
)

// checkReport is the result of comparing the installed dataset with the
// latest release. Local is empty when nothing is installed and Latest is
// empty when the remote could not be reached.
type checkReport struct {
	Path            string `json:"path"`
	Local           string `json:"local,omitempty"`
	Latest          string `json:"latest,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether a newer dataset release is available",
	Long: `Compare the version recorded in <path>/PortalData/version.txt with the
latest GitHub release.

A missing dataset always reports an update. If the release list cannot be
fetched, no update is reported and a warning is logged. The exit code is 0
in both cases.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadUserConfig()
		base, err := config.ResolveDataPath(checkPath, cfg.DataPath)
		if err != nil {
			fail(err, nil)
		}
		errCtx := &errmsg.ErrorContext{DataPath: base}

		catalog, err := buildCatalog(cfg)
		if err != nil {
			fail(err, errCtx)
		}

		ctx, cancel := signalContext()
		defer cancel()

		report, err := runCheck(ctx, catalog, base)
		if err != nil {
			fail(err, errCtx)
		}

		if checkJSON {
			printJSON(report)
			return
		}
		local := report.Local
		if local == "" {
			local = "(not installed)"
		}
		latest := report.Latest
		if latest == "" {
			latest = "(unavailable)"
		}
		printInfof("Installed: %s\n", local)
		printInfof("Latest:    %s\n", latest)
		if report.UpdateAvailable {
			printInfo("An update is available. Run 'portalr download' to install it.")
		} else {
			printInfo("No update available.")
		}
	},
}

// runCheck builds a checkReport for the dataset under base.
func runCheck(ctx context.Context, resolver install.Resolver, base string) (*checkReport, error) {
	datasetDir := install.DatasetPath(base)
	report := &checkReport{Path: datasetDir}

	local, err := install.ReadMarker(datasetDir)
	switch {
	case err == nil:
		report.Local = local.String()
	case errors.Is(err, install.ErrNoMarker):
	default:
		return nil, err
	}

	rec := &recordingResolver{Resolver: resolver}
	probe := install.NewProbe(rec, install.WithLogger(log.Default()))
	update, err := probe.IsUpdateAvailable(ctx, datasetDir)
	if err != nil {
		return nil, err
	}
	report.UpdateAvailable = update

	if rec.latest == nil && report.Local == "" {
		// The probe does not ask the remote when nothing is installed.
		if entry, err := resolver.Resolve(ctx, version.Latest, false); err == nil {
			rec.latest = &entry
		}
	}
	if rec.latest != nil {
		report.Latest = rec.latest.Version.String()
	}
	return report, nil
}

// recordingResolver remembers the latest release the probe resolved so it
// can be reported without a second listing.
type recordingResolver struct {
	install.Resolver
	latest *version.ReleaseEntry
}

func (r *recordingResolver) Resolve(ctx context.Context, selector string, useArchive bool) (version.ReleaseEntry, error) {
	entry, err := r.Resolver.Resolve(ctx, selector, useArchive)
	if err == nil && selector == version.Latest {
		r.latest = &entry
	}
	return entry, err
}

func init() {
	checkCmd.Flags().StringVarP(&checkPath, "path", "p", "", "Base directory of the dataset (default: working directory)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output in JSON format")
}
