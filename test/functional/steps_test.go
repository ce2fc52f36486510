package functional

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fdbesanto2/portalr/internal/install"
	"github.com/fdbesanto2/portalr/internal/log"
	"github.com/fdbesanto2/portalr/internal/version"
)

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// catalog wires the real sources to the scenario's backend.
func (s *testState) catalog() (*version.Catalog, error) {
	opts := []version.Option{
		version.WithHTTPClient(s.backend.server.Client()),
		version.WithLogger(log.NewNoop()),
	}
	repo, err := version.NewGitHubSource("weecology/PortalData",
		append(opts, version.WithBaseURL(s.backend.server.URL))...)
	if err != nil {
		return nil, err
	}
	archive, err := version.NewArchiveSource(s.backend.server.URL+archivePath, opts...)
	if err != nil {
		return nil, err
	}
	return version.NewCatalog(repo, archive, version.WithLogger(log.NewNoop())), nil
}

func (s *testState) datasetDir() string {
	return install.DatasetPath(s.baseDir)
}

func theRepositoryPublishesPage(ctx context.Context, page int, tags string) error {
	s := getState(ctx)
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.pages[page] = splitList(tags)
	return nil
}

func theArchiveHoldsVersion(ctx context.Context, v string) error {
	s := getState(ctx)
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.archiveVer = v
	return nil
}

func theRepositoryRespondsWithStatus(ctx context.Context, status int) error {
	s := getState(ctx)
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.status = status
	return nil
}

func noDatasetIsInstalled(ctx context.Context) error {
	s := getState(ctx)
	if _, err := os.Stat(s.datasetDir()); !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("expected no dataset at %s", s.datasetDir())
	}
	return nil
}

func theInstalledDatasetIsVersion(ctx context.Context, v string) error {
	s := getState(ctx)
	if err := os.MkdirAll(s.datasetDir(), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.datasetDir(), install.MarkerFile), []byte(v+"\n"), 0o644)
}

func theInstalledDatasetContains(ctx context.Context, name string) error {
	s := getState(ctx)
	p := filepath.Join(s.datasetDir(), filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, []byte("stale\n"), 0o644)
}

func listAll(ctx context.Context, useArchive bool) error {
	s := getState(ctx)
	c, err := s.catalog()
	if err != nil {
		return err
	}
	s.entries, s.err = c.ListAll(ctx, useArchive)
	return nil
}

func iListAllReleases(ctx context.Context) error {
	return listAll(ctx, false)
}

func iListAllReleasesFromTheArchive(ctx context.Context) error {
	return listAll(ctx, true)
}

func resolve(ctx context.Context, selector string, useArchive bool) error {
	s := getState(ctx)
	c, err := s.catalog()
	if err != nil {
		return err
	}
	s.resolved, s.err = c.Resolve(ctx, selector, useArchive)
	return nil
}

func iResolve(ctx context.Context, selector string) error {
	return resolve(ctx, selector, false)
}

func iResolveFromTheArchive(ctx context.Context, selector string) error {
	return resolve(ctx, selector, true)
}

func download(ctx context.Context, selector string, useArchive bool) error {
	s := getState(ctx)
	c, err := s.catalog()
	if err != nil {
		return err
	}
	in := install.New(c,
		install.WithHTTPClient(s.backend.server.Client()),
		install.WithLogger(log.NewNoop()),
	)
	s.result, s.err = in.Install(ctx, s.baseDir, selector, useArchive)
	return nil
}

func iDownload(ctx context.Context, selector string) error {
	return download(ctx, selector, false)
}

func iDownloadFromTheArchive(ctx context.Context, selector string) error {
	return download(ctx, selector, true)
}

func iCheckForUpdates(ctx context.Context) error {
	s := getState(ctx)
	c, err := s.catalog()
	if err != nil {
		return err
	}
	probe := install.NewProbe(c, install.WithLogger(log.NewNoop()))
	s.update, s.err = probe.IsUpdateAvailable(ctx, s.datasetDir())
	return nil
}

func theListingHasEntriesInOrder(ctx context.Context, n int, tags string) error {
	s := getState(ctx)
	if s.err != nil {
		return fmt.Errorf("listing failed: %w", s.err)
	}
	if len(s.entries) != n {
		return fmt.Errorf("expected %d entries, got %d", n, len(s.entries))
	}
	want := splitList(tags)
	for i, e := range s.entries {
		if i >= len(want) || e.Tag != want[i] {
			return fmt.Errorf("entry %d: expected tag %v, got %q", i, want, e.Tag)
		}
	}
	return nil
}

func theResolvedVersionIs(ctx context.Context, v string) error {
	s := getState(ctx)
	if s.err != nil {
		return fmt.Errorf("resolve failed: %w", s.err)
	}
	if got := s.resolved.Version.String(); got != v {
		return fmt.Errorf("expected version %s, got %s", v, got)
	}
	return nil
}

func theOperationFailsWith(ctx context.Context, errType string) error {
	s := getState(ctx)
	if s.err == nil {
		return errors.New("expected the operation to fail")
	}
	t, ok := version.TypeOf(s.err)
	if !ok {
		return fmt.Errorf("expected a resolver error, got %v", s.err)
	}
	if t.String() != errType {
		return fmt.Errorf("expected %s error, got %s: %v", errType, t, s.err)
	}
	return nil
}

func theOperationFailsAtStep(ctx context.Context, op string) error {
	s := getState(ctx)
	var ie *install.InstallError
	if !errors.As(s.err, &ie) {
		return fmt.Errorf("expected an install error, got %v", s.err)
	}
	if string(ie.Op) != op {
		return fmt.Errorf("expected failure at %s, got %s: %v", op, ie.Op, s.err)
	}
	return nil
}

func theDatasetMarkerReads(ctx context.Context, v string) error {
	s := getState(ctx)
	got, err := install.ReadMarker(s.datasetDir())
	if err != nil {
		return err
	}
	if got.String() != v {
		return fmt.Errorf("expected marker %s, got %s", v, got)
	}
	return nil
}

func theDatasetContains(ctx context.Context, name string) error {
	s := getState(ctx)
	if _, err := os.Stat(filepath.Join(s.datasetDir(), filepath.FromSlash(name))); err != nil {
		return fmt.Errorf("expected %s in dataset: %w", name, err)
	}
	return nil
}

func theDatasetDoesNotContain(ctx context.Context, name string) error {
	s := getState(ctx)
	if _, err := os.Stat(filepath.Join(s.datasetDir(), filepath.FromSlash(name))); err == nil {
		return fmt.Errorf("expected %s to be absent from the dataset", name)
	}
	return nil
}

func anUpdateIsAvailable(ctx context.Context) error {
	s := getState(ctx)
	if s.err != nil {
		return s.err
	}
	if !s.update {
		return errors.New("expected an update to be available")
	}
	return nil
}

func noUpdateIsAvailable(ctx context.Context) error {
	s := getState(ctx)
	if s.err != nil {
		return s.err
	}
	if s.update {
		return errors.New("expected no update to be available")
	}
	return nil
}

func theRepositoryWasQueried(ctx context.Context, n int) error {
	s := getState(ctx)
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.backend.releaseQueries != n {
		return fmt.Errorf("expected %d release queries, got %d", n, s.backend.releaseQueries)
	}
	return nil
}
