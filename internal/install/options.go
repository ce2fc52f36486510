package install

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/fdbesanto2/portalr/internal/log"
)

const (
	// DatasetDirName is the canonical dataset directory under the base path.
	DatasetDirName = "PortalData"

	// MarkerFile holds the installed release version inside the dataset
	// directory.
	MarkerFile = "version.txt"
)

// DatasetPath returns the dataset directory for base.
func DatasetPath(base string) string {
	return filepath.Join(base, DatasetDirName)
}

// Option configures an Installer or Probe.
type Option func(*options)

type options struct {
	httpClient     *http.Client
	logger         log.Logger
	progressOutput io.Writer
	tempDir        string
}

func newOptions(opts []Option) options {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithHTTPClient sets the client used to download artifacts.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithProgressOutput enables a download progress bar written to w.
func WithProgressOutput(w io.Writer) Option {
	return func(o *options) {
		o.progressOutput = w
	}
}

// WithTempDir sets where artifacts are downloaded before extraction.
// Default: os.TempDir().
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tempDir = dir
	}
}
