package version

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ErrorType classifies resolver errors for better handling
type ErrorType int

const (
	// ErrTypeConnectivity indicates a network failure whose cause is not
	// more specific
	ErrTypeConnectivity ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeDNS indicates DNS resolution failure
	ErrTypeDNS
	// ErrTypeConnection indicates connection refused or reset
	ErrTypeConnection
	// ErrTypeTLS indicates TLS/SSL certificate errors
	ErrTypeTLS
	// ErrTypeRateLimit indicates the API quota is exhausted (HTTP 403 with
	// no remaining requests, or 429)
	ErrTypeRateLimit
	// ErrTypeAuth indicates the credential was rejected (HTTP 401)
	ErrTypeAuth
	// ErrTypeMalformedResponse indicates an unexpected content type, an
	// undecodable body or a landing page that did not match
	ErrTypeMalformedResponse
	// ErrTypeInvalidVersion indicates a selector with an unsupported shape
	ErrTypeInvalidVersion
	// ErrTypeNotFound indicates no release matched the selector
	ErrTypeNotFound
	// ErrTypeAmbiguous indicates more than one release matched the selector
	ErrTypeAmbiguous
	// ErrTypeUnexpectedStatus indicates any other non-success HTTP status
	ErrTypeUnexpectedStatus
	// ErrTypeRepositoryNotFound indicates the configured repository does
	// not exist or is not visible to the credential (HTTP 404)
	ErrTypeRepositoryNotFound
	// ErrTypeSourceNotConfigured indicates a request for a backend that has
	// no configuration
	ErrTypeSourceNotConfigured
)

var errorTypeNames = map[ErrorType]string{
	ErrTypeConnectivity:        "connectivity",
	ErrTypeTimeout:             "timeout",
	ErrTypeDNS:                 "dns",
	ErrTypeConnection:          "connection",
	ErrTypeTLS:                 "tls",
	ErrTypeRateLimit:           "rate_limit",
	ErrTypeAuth:                "auth",
	ErrTypeMalformedResponse:   "malformed_response",
	ErrTypeInvalidVersion:      "invalid_version",
	ErrTypeNotFound:            "not_found",
	ErrTypeAmbiguous:           "ambiguous",
	ErrTypeUnexpectedStatus:    "unexpected_status",
	ErrTypeRepositoryNotFound:  "repository_not_found",
	ErrTypeSourceNotConfigured: "source_not_configured",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// ResolverError provides structured error information for release listing
// and resolution failures.
type ResolverError struct {
	Type    ErrorType
	Source  string // Source description (e.g., "github weecology/PortalData")
	Version string // Selector being resolved, if any
	Message string // Human-readable error message
	Err     error  // Underlying error (if any)

	// StatusCode is the HTTP status that caused the error, or 0.
	StatusCode int
	// Reset is when the rate limit window reopens (rate limit errors only).
	Reset time.Time
	// Authenticated reports whether the failing request carried a token.
	Authenticated bool
}

// Error implements the error interface
func (e *ResolverError) Error() string {
	msg := e.Message
	if e.Version != "" {
		msg = fmt.Sprintf("%s (version %s)", msg, e.Version)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, msg)
}

// Unwrap returns the underlying error for error chain support
func (e *ResolverError) Unwrap() error {
	return e.Err
}

// Suggestion returns an actionable suggestion for the user based on the error type.
// Returns an empty string if no specific suggestion is available.
func (e *ResolverError) Suggestion() string {
	switch e.Type {
	case ErrTypeRateLimit:
		if e.Authenticated {
			return "Wait for the rate limit to reset before trying again"
		}
		return "Set GITHUB_PAT (or GITHUB_TOKEN) to raise the rate limit, or wait and try again"
	case ErrTypeAuth:
		return "Check that GITHUB_PAT holds a valid, unexpired token"
	case ErrTypeTimeout:
		return "Check your internet connection and try again, or raise PORTALR_API_TIMEOUT"
	case ErrTypeDNS:
		return "Check your DNS settings and internet connection"
	case ErrTypeConnection:
		return "The service may be down or blocked. Check if you can access it in a browser"
	case ErrTypeTLS:
		return "There may be a certificate issue. Check your system time is correct"
	case ErrTypeConnectivity:
		return "Check your internet connection and try again"
	case ErrTypeMalformedResponse:
		return "The release page layout may have changed. Try the other release source"
	case ErrTypeInvalidVersion:
		return `Use "latest", major.minor (e.g. 1.50) or major.minor.patch`
	case ErrTypeNotFound:
		return "Run 'portalr versions' to see the available releases"
	case ErrTypeRepositoryNotFound:
		return "Check the repository setting with 'portalr config get repository'"
	case ErrTypeSourceNotConfigured:
		return "Set archive_url with 'portalr config set archive_url <url>', or drop --archive"
	default:
		return ""
	}
}

// IsConnectivity reports whether the type is a network-level failure.
func (t ErrorType) IsConnectivity() bool {
	switch t {
	case ErrTypeConnectivity, ErrTypeTimeout, ErrTypeDNS, ErrTypeConnection, ErrTypeTLS:
		return true
	}
	return false
}

// TypeOf returns the ErrorType of the first ResolverError in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var re *ResolverError
	if errors.As(err, &re) {
		return re.Type, true
	}
	return 0, false
}

// IsRateLimit reports whether err is a rate limit failure.
func IsRateLimit(err error) bool {
	t, ok := TypeOf(err)
	return ok && t == ErrTypeRateLimit
}

// IsAuth reports whether err is a rejected credential.
func IsAuth(err error) bool {
	t, ok := TypeOf(err)
	return ok && t == ErrTypeAuth
}

// IsConnectivity reports whether err is a network-level failure.
func IsConnectivity(err error) bool {
	t, ok := TypeOf(err)
	return ok && t.IsConnectivity()
}

// ClassifyError examines a transport error and returns the most specific
// connectivity ErrorType.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrTypeConnectivity
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTypeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ErrTypeTimeout
		}
		return ErrTypeDNS
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ErrTypeTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return ErrTypeTimeout
		}
		return ErrTypeConnection
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return ErrTypeTimeout
		}
		msg := urlErr.Err.Error()
		if strings.Contains(msg, "certificate") ||
			strings.Contains(msg, "tls") ||
			strings.Contains(msg, "x509") {
			return ErrTypeTLS
		}
		return ClassifyError(urlErr.Err)
	}

	return ErrTypeConnectivity
}

// wrapNetworkError wraps a transport error with its classified type.
func wrapNetworkError(err error, source, message string) *ResolverError {
	return &ResolverError{
		Type:    ClassifyError(err),
		Source:  source,
		Message: message,
		Err:     err,
	}
}
