package main

import (
	"errors"
	"os"

	"github.com/fdbesanto2/portalr/internal/install"
	"github.com/fdbesanto2/portalr/internal/version"
)

// Exit codes for different error types.
// These enable scripts to distinguish between failure modes.
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0

	// ExitGeneral indicates a general error
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments, usage or configuration error
	ExitUsage = 2

	// ExitVersionNotFound indicates the version was not found
	ExitVersionNotFound = 4

	// ExitNetwork indicates a network error
	ExitNetwork = 5

	// ExitInstallFailed indicates installation failed
	ExitInstallFailed = 6

	// ExitRateLimited indicates the release backend refused further requests
	ExitRateLimited = 7

	// ExitAuth indicates the backend rejected the credentials
	ExitAuth = 8
)

// exitWithCode exits with the specified exit code
func exitWithCode(code int) {
	os.Exit(code)
}

// exitCodeFor maps an error to the exit code scripts should see.
// Resolver errors take precedence over the install step that carried them.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch {
	case version.IsRateLimit(err):
		return ExitRateLimited
	case version.IsAuth(err):
		return ExitAuth
	case version.IsConnectivity(err):
		return ExitNetwork
	}
	if t, ok := version.TypeOf(err); ok {
		switch t {
		case version.ErrTypeInvalidVersion, version.ErrTypeSourceNotConfigured, version.ErrTypeRepositoryNotFound:
			return ExitUsage
		case version.ErrTypeNotFound, version.ErrTypeAmbiguous:
			return ExitVersionNotFound
		default:
			return ExitGeneral
		}
	}
	var ie *install.InstallError
	if errors.As(err, &ie) {
		if ie.Op == install.OpDownload {
			return ExitNetwork
		}
		return ExitInstallFailed
	}
	return ExitGeneral
}
