package install

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fdbesanto2/portalr/internal/log"
	"github.com/fdbesanto2/portalr/internal/version"
)

// Probe compares an installed dataset's marker with the latest repository
// release.
type Probe struct {
	resolver Resolver
	logger   log.Logger
}

// NewProbe creates a Probe.
func NewProbe(resolver Resolver, opts ...Option) *Probe {
	o := newOptions(opts)
	return &Probe{resolver: resolver, logger: o.logger}
}

// ReadMarker returns the version recorded in datasetDir's marker file. It
// returns ErrNoMarker when the directory or marker is missing, and a
// *ProbeError when the marker cannot be read or parsed.
func ReadMarker(datasetDir string) (version.VersionCode, error) {
	path := filepath.Join(datasetDir, MarkerFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return version.VersionCode{}, ErrNoMarker
	}
	if err != nil {
		return version.VersionCode{}, &ProbeError{Path: path, Err: err}
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return version.VersionCode{}, &ProbeError{Path: path, Err: errors.New("marker is empty")}
	}
	v, err := version.ParseStrict(fields[0])
	if err != nil {
		return version.VersionCode{}, &ProbeError{Path: path, Err: err}
	}
	return v, nil
}

// IsUpdateAvailable reports whether the repository's latest release is newer
// than the dataset in datasetDir.
//
// A missing directory or marker counts as an available update. The check is
// advisory: when the repository cannot be queried the answer is false and
// the failure is only logged. A corrupt marker is returned as *ProbeError.
func (p *Probe) IsUpdateAvailable(ctx context.Context, datasetDir string) (bool, error) {
	local, err := ReadMarker(datasetDir)
	if errors.Is(err, ErrNoMarker) {
		p.logger.Debug("no local version marker", "path", datasetDir)
		return true, nil
	}
	if err != nil {
		return false, err
	}

	latest, err := p.resolver.Resolve(ctx, version.Latest, false)
	if err != nil {
		p.logger.Warn("could not check for dataset updates", "error", err)
		return false, nil
	}

	p.logger.Debug("compared dataset versions", "local", local, "latest", latest.Version)
	return local.Less(latest.Version), nil
}
