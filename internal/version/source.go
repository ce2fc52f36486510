package version

import (
	"context"
	"net/http"

	"github.com/fdbesanto2/portalr/internal/log"
)

// ReleaseEntry is one downloadable dataset release.
type ReleaseEntry struct {
	Tag     string      // Tag as published (e.g., "1.50" or "v2.0.0")
	Version VersionCode // Tag parsed leniently
	URL     string      // Artifact (zip) download URL
}

// Source lists dataset releases from one backend.
type Source interface {
	// ListReleases returns releases in backend order. For the repository
	// backend index 0 is the most recent release.
	ListReleases(ctx context.Context) ([]ReleaseEntry, error)

	// SourceDescription identifies the backend in errors and logs.
	SourceDescription() string
}

// Option configures a source or catalog.
type Option func(*options)

type options struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
	maxPages   int
}

func newOptions(opts []Option) options {
	o := options{
		logger:   log.Default(),
		maxPages: 1000,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithToken authenticates repository API requests. An empty token leaves
// requests unauthenticated.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithBaseURL overrides the repository API base URL (tests point it at an
// httptest server).
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for requests.
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

// WithMaxPages caps how many pages a listing may follow.
func WithMaxPages(n int) Option {
	return func(o *options) {
		o.maxPages = n
	}
}
