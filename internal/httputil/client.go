// Package httputil builds the HTTP clients portalr uses for the release API,
// the archive landing page and artifact downloads.
package httputil

import (
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent identifies portalr to the release backends. GitHub rejects
// API requests without a User-Agent.
const DefaultUserAgent = "portalr"

// ClientOptions configures the secure HTTP client.
type ClientOptions struct {
	// Timeout is the overall request timeout, body included. Default: 30s.
	// Artifact downloads pass a longer value.
	Timeout time.Duration

	// DialTimeout is the TCP dial timeout. Default: 30s.
	DialTimeout time.Duration

	// TLSHandshakeTimeout is the TLS handshake timeout. Default: 10s.
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout is the time to wait for response headers. Default: 10s.
	ResponseHeaderTimeout time.Duration

	// MaxRedirects is the maximum redirect depth. Default: 10.
	// Repository archive URLs redirect once to a download host.
	MaxRedirects int

	// EnableCompression enables Accept-Encoding negotiation. Default: false,
	// which keeps zip artifacts byte-exact and avoids decompression bombs.
	EnableCompression bool

	// UserAgent is sent on every request that does not already carry one.
	// Default: DefaultUserAgent.
	UserAgent string
}

// DefaultOptions returns the default client options.
func DefaultOptions() ClientOptions {
	return ClientOptions{
		Timeout:               30 * time.Second,
		DialTimeout:           30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		MaxRedirects:          10,
		EnableCompression:     false,
		UserAgent:             DefaultUserAgent,
	}
}

// withDefaults fills zero-valued fields from DefaultOptions.
func (o ClientOptions) withDefaults() ClientOptions {
	d := DefaultOptions()
	if o.Timeout == 0 {
		o.Timeout = d.Timeout
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = d.DialTimeout
	}
	if o.TLSHandshakeTimeout == 0 {
		o.TLSHandshakeTimeout = d.TLSHandshakeTimeout
	}
	if o.ResponseHeaderTimeout == 0 {
		o.ResponseHeaderTimeout = d.ResponseHeaderTimeout
	}
	if o.MaxRedirects == 0 {
		o.MaxRedirects = d.MaxRedirects
	}
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	return o
}

// NewSecureClient creates an HTTP client with bounded timeouts and checked
// redirects.
//
// Security features:
//   - compression disabled unless opted in
//   - redirects must stay on HTTPS
//   - redirect targets resolving to private, loopback, link-local, multicast
//     or unspecified addresses are refused (DNS rebinding included)
//   - configurable redirect chain limit
func NewSecureClient(opts ClientOptions) *http.Client {
	opts = opts.withDefaults()

	transport := &http.Transport{
		Proxy:              http.ProxyFromEnvironment,
		DisableCompression: !opts.EnableCompression,
		DialContext: (&net.Dialer{
			Timeout:   opts.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &http.Client{
		Timeout:       opts.Timeout,
		Transport:     &userAgentTransport{base: transport, userAgent: opts.UserAgent},
		CheckRedirect: makeRedirectChecker(opts.MaxRedirects),
	}
}

// userAgentTransport sets a User-Agent header on requests lacking one.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}

// BaseTransport returns the *http.Transport underneath a client built by
// NewSecureClient, or nil for other clients.
func BaseTransport(c *http.Client) *http.Transport {
	if ua, ok := c.Transport.(*userAgentTransport); ok {
		tr, _ := ua.base.(*http.Transport)
		return tr
	}
	tr, _ := c.Transport.(*http.Transport)
	return tr
}
