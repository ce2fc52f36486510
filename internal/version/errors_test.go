package version

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"testing"
)

func TestResolverError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ResolverError
		expected string
	}{
		{
			name: "with underlying error",
			err: &ResolverError{
				Type:    ErrTypeConnectivity,
				Source:  "github weecology/PortalData",
				Message: "failed to fetch releases",
				Err:     errors.New("timeout"),
			},
			expected: "github weecology/PortalData: failed to fetch releases: timeout",
		},
		{
			name: "with version",
			err: &ResolverError{
				Type:    ErrTypeNotFound,
				Source:  "github weecology/PortalData",
				Version: "1.50",
				Message: "no release matches",
			},
			expected: "github weecology/PortalData: no release matches (version 1.50)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestResolverError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &ResolverError{Type: ErrTypeConnectivity, Source: "test", Message: "m", Err: underlying}

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find the underlying error")
	}
}

func TestResolverError_Suggestion(t *testing.T) {
	unauth := &ResolverError{Type: ErrTypeRateLimit}
	if !strings.Contains(unauth.Suggestion(), "GITHUB_PAT") {
		t.Errorf("unauthenticated rate limit suggestion should mention GITHUB_PAT, got %q", unauth.Suggestion())
	}
	auth := &ResolverError{Type: ErrTypeRateLimit, Authenticated: true}
	if strings.Contains(auth.Suggestion(), "Set GITHUB_PAT") {
		t.Errorf("authenticated rate limit suggestion should not ask for a token, got %q", auth.Suggestion())
	}
	for _, typ := range []ErrorType{ErrTypeAuth, ErrTypeTimeout, ErrTypeDNS, ErrTypeConnection, ErrTypeTLS, ErrTypeConnectivity, ErrTypeNotFound, ErrTypeInvalidVersion, ErrTypeRepositoryNotFound, ErrTypeSourceNotConfigured} {
		if (&ResolverError{Type: typ}).Suggestion() == "" {
			t.Errorf("expected a suggestion for %s", typ)
		}
	}
	if (&ResolverError{Type: ErrTypeAmbiguous}).Suggestion() != "" {
		t.Error("expected no suggestion for ambiguous catalogs")
	}
}

func TestErrorType_String(t *testing.T) {
	if ErrTypeRateLimit.String() != "rate_limit" {
		t.Errorf("String() = %q", ErrTypeRateLimit.String())
	}
	if ErrTypeRepositoryNotFound.String() != "repository_not_found" {
		t.Errorf("String() = %q", ErrTypeRepositoryNotFound.String())
	}
	if ErrorType(99).String() != "ErrorType(99)" {
		t.Errorf("String() = %q", ErrorType(99).String())
	}
}

func TestHelpers(t *testing.T) {
	wrapped := fmt.Errorf("listing: %w", &ResolverError{Type: ErrTypeDNS})

	if !IsConnectivity(wrapped) {
		t.Error("DNS errors should count as connectivity")
	}
	if IsRateLimit(wrapped) || IsAuth(wrapped) {
		t.Error("DNS error misclassified")
	}
	if !IsRateLimit(&ResolverError{Type: ErrTypeRateLimit}) {
		t.Error("IsRateLimit")
	}
	if !IsAuth(&ResolverError{Type: ErrTypeAuth}) {
		t.Error("IsAuth")
	}
	if _, ok := TypeOf(errors.New("plain")); ok {
		t.Error("TypeOf should report false for non-resolver errors")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"nil", nil, ErrTypeConnectivity},
		{"deadline", context.DeadlineExceeded, ErrTypeTimeout},
		{"wrapped deadline", fmt.Errorf("op: %w", context.DeadlineExceeded), ErrTypeTimeout},
		{"canceled", context.Canceled, ErrTypeConnectivity},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.github.com"}, ErrTypeDNS},
		{"dns timeout", &net.DNSError{Err: "timeout", Name: "api.github.com", IsTimeout: true}, ErrTypeTimeout},
		{"tls", &tls.CertificateVerificationError{Err: x509.UnknownAuthorityError{}}, ErrTypeTLS},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, ErrTypeConnection},
		{"url wrapping x509", &url.Error{Op: "Get", URL: "https://zenodo.org", Err: errors.New("x509: certificate signed by unknown authority")}, ErrTypeTLS},
		{"url wrapping op", &url.Error{Op: "Get", URL: "https://zenodo.org", Err: &net.OpError{Op: "dial", Err: errors.New("reset")}}, ErrTypeConnection},
		{"generic", errors.New("boom"), ErrTypeConnectivity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError() = %s, want %s", got, tt.expected)
			}
		})
	}
}
