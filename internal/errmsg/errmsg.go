// Package errmsg provides enhanced error message formatting with actionable suggestions.
package errmsg

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fdbesanto2/portalr/internal/install"
	"github.com/fdbesanto2/portalr/internal/version"
)

// ErrorContext provides additional context for error formatting
type ErrorContext struct {
	DataPath string // Base path the command operated on
}

// now is swapped in tests.
var now = time.Now

// Format returns a formatted error message with possible causes and suggestions.
// The context parameter is optional - pass nil for generic formatting.
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}

	var resolverErr *version.ResolverError
	if errors.As(err, &resolverErr) {
		return formatResolverError(err, resolverErr)
	}

	var installErr *install.InstallError
	if errors.As(err, &installErr) {
		return formatInstallError(err, installErr, ctx)
	}

	var probeErr *install.ProbeError
	if errors.As(err, &probeErr) {
		return formatProbeError(err, ctx)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return formatNetworkError(err.Error(), netErr.Timeout())
	}

	if isPermissionError(err.Error()) {
		return formatPermissionError(err.Error(), ctx)
	}

	return err.Error()
}

// message accumulates a headline with causes and suggestions.
type message struct {
	sb strings.Builder
}

func newMessage(headline string) *message {
	m := &message{}
	m.sb.WriteString(headline)
	m.sb.WriteString("\n")
	return m
}

func (m *message) section(title string, lines ...string) {
	if len(lines) == 0 {
		return
	}
	m.sb.WriteString("\n" + title + ":\n")
	for _, l := range lines {
		m.sb.WriteString("  - " + l + "\n")
	}
}

func (m *message) String() string { return m.sb.String() }

func formatResolverError(err error, re *version.ResolverError) string {
	m := newMessage(err.Error())

	switch {
	case re.Type == version.ErrTypeRateLimit:
		m.section("Possible causes",
			"Too many requests to the release API",
			"Unauthenticated requests have lower limits")
		suggestions := []string{}
		if !re.Reset.IsZero() {
			wait := re.Reset.Sub(now()).Round(time.Minute)
			if wait > 0 {
				suggestions = append(suggestions, fmt.Sprintf("The limit resets in about %s (at %s)", wait, re.Reset.Local().Format(time.Kitchen)))
			}
		}
		if !re.Authenticated {
			suggestions = append(suggestions, "Set GITHUB_PAT to increase the rate limit")
		}
		suggestions = append(suggestions, "Use --archive to fetch the latest release from the archive mirror")
		m.section("Suggestions", suggestions...)

	case re.Type == version.ErrTypeAuth:
		m.section("Possible causes",
			"The token in GITHUB_PAT or GITHUB_TOKEN is invalid or expired",
			"The token in $PORTALR_HOME/config.toml [secrets] is stale")
		m.section("Suggestions",
			re.Suggestion(),
			"Unset the token to fall back to unauthenticated requests")

	case re.Type.IsConnectivity():
		causes := []string{"Network connectivity issue", "Firewall or proxy blocking the connection"}
		switch re.Type {
		case version.ErrTypeTimeout:
			causes = append([]string{"Request timed out"}, causes...)
		case version.ErrTypeDNS:
			causes = append([]string{"DNS resolution failure"}, causes...)
		case version.ErrTypeTLS:
			causes = append([]string{"Certificate verification failed"}, causes...)
		}
		m.section("Possible causes", causes...)
		m.section("Suggestions", re.Suggestion(), "Try again in a few minutes")

	case re.Type == version.ErrTypeMalformedResponse:
		m.section("Possible causes",
			"A proxy or captive portal answered instead of the release service",
			"The release page layout changed")
		m.section("Suggestions", re.Suggestion())

	case re.Type == version.ErrTypeInvalidVersion:
		m.section("Suggestions", re.Suggestion())

	case re.Type == version.ErrTypeNotFound:
		m.section("Possible causes",
			"The version does not exist",
			"The repository setting points at the wrong project")
		m.section("Suggestions",
			re.Suggestion(),
			"Use 'latest' to get the most recent version")

	case re.Type == version.ErrTypeRepositoryNotFound:
		m.section("Possible causes",
			"The repository setting has a typo or names a renamed project",
			"The repository is private and the token cannot see it")
		m.section("Suggestions",
			re.Suggestion(),
			"Set it back with 'portalr config set repository weecology/PortalData'")

	case re.Type == version.ErrTypeSourceNotConfigured:
		m.section("Possible causes",
			"--archive or use_archive was set but archive_url is empty or invalid")
		m.section("Suggestions", re.Suggestion())

	case re.Type == version.ErrTypeAmbiguous:
		m.section("Possible causes", "The repository publishes several tags for the same version")
		m.section("Suggestions", "Report the duplicate tags to the dataset maintainers")

	default:
		m.section("Suggestions",
			"Try again in a few minutes",
			"Use --archive to fetch the latest release from the archive mirror")
	}

	return m.String()
}

func formatInstallError(err error, ie *install.InstallError, ctx *ErrorContext) string {
	m := newMessage(err.Error())

	switch ie.Op {
	case install.OpDownload:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			m.section("Possible causes", "The download timed out")
			m.section("Suggestions", "Raise PORTALR_DOWNLOAD_TIMEOUT and try again")
			break
		}
		m.section("Possible causes",
			"Network connectivity issue",
			"The artifact URL is no longer served")
		m.section("Suggestions", "Try again in a few minutes", "Try --archive to download from the archive mirror")

	case install.OpInspect:
		m.section("Possible causes",
			"The download was truncated or is not a zip archive",
			"The release artifact has an unexpected layout")
		m.section("Suggestions", "Try again; a fresh download may succeed")

	case install.OpExtract, install.OpVerify:
		m.section("Possible causes",
			"Not enough disk space",
			"The archive contains unsafe paths or links")
		m.section("Suggestions", "Check free space on the destination filesystem")
		if ctx != nil && ctx.DataPath != "" {
			m.section("Note", fmt.Sprintf("The existing dataset in %s was not modified", install.DatasetPath(ctx.DataPath)))
		}

	case install.OpClear, install.OpSwap:
		m.section("Possible causes",
			"A file in the dataset directory is open or read-only",
			"Insufficient permissions on the dataset directory")
		m.section("Suggestions",
			"The dataset directory may be partially removed",
			"Fix the permissions and run 'portalr download' again")
	}

	return m.String()
}

func formatProbeError(err error, ctx *ErrorContext) string {
	m := newMessage(err.Error())
	m.section("Possible causes", "The version marker was edited or truncated")
	if ctx != nil && ctx.DataPath != "" {
		m.section("Suggestions", fmt.Sprintf("Run 'portalr download --path %s' to reinstall the dataset", ctx.DataPath))
	} else {
		m.section("Suggestions", "Run 'portalr download' to reinstall the dataset")
	}
	return m.String()
}

func formatNetworkError(msg string, timeout bool) string {
	m := newMessage(msg)
	causes := []string{"Network connectivity issue", "Firewall or proxy blocking the connection"}
	if timeout {
		causes = append([]string{"Request timed out"}, causes...)
	}
	m.section("Possible causes", causes...)
	m.section("Suggestions", "Check your internet connection", "Try again in a few minutes")
	return m.String()
}

func formatPermissionError(msg string, ctx *ErrorContext) string {
	m := newMessage(msg)
	m.section("Possible causes",
		"Insufficient permissions on the data directory or $PORTALR_HOME",
		"File or directory owned by different user")
	if ctx != nil && ctx.DataPath != "" {
		m.section("Suggestions", fmt.Sprintf("Check permissions: ls -la %s", ctx.DataPath))
	} else {
		m.section("Suggestions", "Check permissions on ~/.portalr")
	}
	return m.String()
}

// isPermissionError checks if the error message indicates a permission issue
func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "operation not permitted")
}
