// Package install downloads dataset releases and swaps them into place, and
// probes installed datasets for available updates.
package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"github.com/fdbesanto2/portalr/internal/httputil"
	"github.com/fdbesanto2/portalr/internal/log"
	"github.com/fdbesanto2/portalr/internal/version"
)

// Resolver maps a version selector to a release. *version.Catalog
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, selector string, useArchive bool) (version.ReleaseEntry, error)
}

// Installer replaces the dataset directory under a base path with a
// downloaded release.
//
// Concurrent installs into the same base path are not supported; no locking
// is done.
type Installer struct {
	resolver       Resolver
	httpClient     *http.Client
	logger         log.Logger
	progressOutput io.Writer
	tempDir        string
}

// Result describes a completed install.
type Result struct {
	Entry version.ReleaseEntry
	Path  string // Canonical dataset directory
}

// New creates an Installer.
func New(resolver Resolver, opts ...Option) *Installer {
	o := newOptions(opts)
	if o.httpClient == nil {
		o.httpClient = httputil.NewSecureClient(httputil.ClientOptions{Timeout: 10 * time.Minute})
	}
	return &Installer{
		resolver:       resolver,
		httpClient:     o.httpClient,
		logger:         o.logger,
		progressOutput: o.progressOutput,
		tempDir:        o.tempDir,
	}
}

// Install resolves selector, downloads the artifact and installs it as
// DatasetPath(parent).
//
// Nothing under the canonical path is touched until the artifact has been
// extracted and verified in a staging directory next to it. The existing
// dataset is then removed with RemoveTree and the staged directory renamed
// into place. A failure between the removal and the rename leaves the
// dataset absent; the returned InstallError says which phase failed.
func (in *Installer) Install(ctx context.Context, parent, selector string, useArchive bool) (*Result, error) {
	entry, err := in.resolver.Resolve(ctx, selector, useArchive)
	if err != nil {
		return nil, &InstallError{Op: OpResolve, Version: selector, Err: err}
	}
	logger := in.logger.With("version", entry.Tag)

	parent, err = filepath.Abs(parent)
	if err != nil {
		return nil, &InstallError{Op: OpSwap, Path: parent, Version: entry.Tag, Err: err}
	}
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, &InstallError{Op: OpSwap, Path: parent, Version: entry.Tag, Err: err}
	}
	dest := DatasetPath(parent)

	archivePath, err := in.download(ctx, entry.URL)
	if err != nil {
		return nil, &InstallError{Op: OpDownload, Path: log.SanitizeURL(entry.URL), Version: entry.Tag, Err: err}
	}
	defer os.Remove(archivePath)

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, &InstallError{Op: OpInspect, Path: archivePath, Version: entry.Tag, Err: fmt.Errorf("failed to open zip: %w", err)}
	}
	defer zr.Close()

	layout, err := inspectArchive(&zr.Reader)
	if err != nil {
		return nil, &InstallError{Op: OpInspect, Path: archivePath, Version: entry.Tag, Err: err}
	}
	logger.Debug("inspected artifact", "top_level", layout.TopLevel, "files", layout.Files)

	// Staging lives beside dest so the final rename stays on one filesystem.
	staging := filepath.Join(parent, ".portalr-staging-"+uuid.NewString())
	if err := os.Mkdir(staging, 0755); err != nil {
		return nil, &InstallError{Op: OpExtract, Path: staging, Version: entry.Tag, Err: err}
	}
	swapped := false
	defer func() {
		if swapped {
			// Only the emptied staging directory remains.
			if err := os.Remove(staging); err != nil {
				logger.Warn("failed to remove staging directory", "path", staging, "error", err)
			}
			return
		}
		if err := os.RemoveAll(staging); err != nil {
			logger.Warn("failed to remove staging directory", "path", staging, "error", err)
		}
	}()

	written, err := extractArchive(&zr.Reader, staging)
	if err != nil {
		return nil, &InstallError{Op: OpExtract, Path: staging, Version: entry.Tag, Err: err}
	}

	staged := filepath.Join(staging, layout.TopLevel)
	if err := verifyStaged(staged, written, layout.Files); err != nil {
		return nil, &InstallError{Op: OpVerify, Path: staged, Version: entry.Tag, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, &InstallError{Op: OpVerify, Path: staged, Version: entry.Tag, Err: err}
	}

	logger.Debug("clearing existing dataset", "path", dest)
	if err := RemoveTree(dest); err != nil {
		return nil, &InstallError{Op: OpClear, Path: dest, Version: entry.Tag, Err: err}
	}

	if err := os.Rename(staged, dest); err != nil {
		return nil, &InstallError{Op: OpSwap, Path: dest, Version: entry.Tag, Err: err}
	}
	swapped = true

	logger.Info("installed dataset", "path", dest)
	return &Result{Entry: entry, Path: dest}, nil
}

// verifyStaged checks that extraction produced the expected top-level
// directory and every file the archive listed.
func verifyStaged(staged string, written, expected int) error {
	info, err := os.Lstat(staged)
	if err != nil {
		return fmt.Errorf("extracted directory missing: %w", err)
	}
	if !info.IsDir() {
		return errors.New("extracted top-level entry is not a directory")
	}
	if written != expected {
		return fmt.Errorf("extracted %d files, archive lists %d", written, expected)
	}
	return nil
}
