package install

import (
	"errors"
	"fmt"
)

// Op names the installer phase that failed.
type Op string

const (
	OpResolve  Op = "resolve"
	OpDownload Op = "download"
	OpInspect  Op = "inspect"
	OpExtract  Op = "extract"
	OpVerify   Op = "verify"
	OpClear    Op = "clear"
	OpSwap     Op = "swap"
)

// InstallError reports which phase of an install failed. Failures at or
// after OpClear may leave the dataset directory partially removed.
type InstallError struct {
	Op      Op
	Path    string // Path the phase was operating on
	Version string // Release tag or selector being installed
	Err     error
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("install %s", e.Op)
	if e.Version != "" {
		msg += fmt.Sprintf(" (version %s)", e.Version)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" %s", e.Path)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// Destructive reports whether the failure happened after existing data
// started being removed.
func (e *InstallError) Destructive() bool {
	return e.Op == OpClear || e.Op == OpSwap
}

// ErrNoMarker is returned by ReadMarker when the dataset directory or its
// version marker does not exist.
var ErrNoMarker = errors.New("no version marker")

// ProbeError reports an unreadable or unparseable version marker.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("read version marker %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
