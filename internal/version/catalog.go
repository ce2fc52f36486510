package version

import (
	"context"
	"fmt"
	"strings"

	"github.com/fdbesanto2/portalr/internal/log"
)

// Catalog answers "which release" questions over the repository source and,
// for the latest release only, the archive source.
type Catalog struct {
	repository Source
	archive    Source
	logger     log.Logger
}

// NewCatalog creates a catalog. archive may be nil when no mirror is
// configured; repository is required.
func NewCatalog(repository, archive Source, opts ...Option) *Catalog {
	o := newOptions(opts)
	return &Catalog{repository: repository, archive: archive, logger: o.logger}
}

// source picks the backend. The archive only knows its latest release, so
// any other selector goes to the repository.
func (c *Catalog) source(selector string, useArchive bool) (Source, error) {
	if !useArchive {
		return c.repository, nil
	}
	if selector != Latest {
		c.logger.Debug("archive source only serves the latest release, using repository",
			"selector", selector)
		return c.repository, nil
	}
	if c.archive == nil {
		return nil, &ResolverError{
			Type:    ErrTypeSourceNotConfigured,
			Source:  "archive",
			Message: "no archive source configured",
		}
	}
	return c.archive, nil
}

// ListAll returns every release the selected source reports, in backend
// order. A failed listing is always an error, never an empty slice.
func (c *Catalog) ListAll(ctx context.Context, useArchive bool) ([]ReleaseEntry, error) {
	src, err := c.source(Latest, useArchive)
	if err != nil {
		return nil, err
	}
	entries, err := src.ListReleases(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []ReleaseEntry{}
	}
	return entries, nil
}

// Resolve maps a selector ("latest", "1.50" or "1.50.0") to a single
// release. A selector matching no release is NotFound; one matching several
// is Ambiguous.
func (c *Catalog) Resolve(ctx context.Context, selector string, useArchive bool) (ReleaseEntry, error) {
	normalized, err := NormalizeSelector(selector)
	if err != nil {
		return ReleaseEntry{}, err
	}

	src, err := c.source(normalized, useArchive)
	if err != nil {
		return ReleaseEntry{}, withSelector(err, selector)
	}
	entries, err := src.ListReleases(ctx)
	if err != nil {
		return ReleaseEntry{}, withSelector(err, selector)
	}

	if normalized == Latest {
		if len(entries) == 0 {
			return ReleaseEntry{}, &ResolverError{
				Type:    ErrTypeNotFound,
				Source:  src.SourceDescription(),
				Version: selector,
				Message: "no releases published",
			}
		}
		c.logger.Debug("resolved latest release", "source", src.SourceDescription(), "tag", entries[0].Tag)
		return entries[0], nil
	}

	want, err := ParseStrict(normalized)
	if err != nil {
		return ReleaseEntry{}, err
	}
	var matches []ReleaseEntry
	for _, e := range entries {
		if e.Version == want {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 1:
		c.logger.Debug("resolved release", "selector", selector, "tag", matches[0].Tag)
		return matches[0], nil
	case 0:
		return ReleaseEntry{}, &ResolverError{
			Type:    ErrTypeNotFound,
			Source:  src.SourceDescription(),
			Version: selector,
			Message: "no release matches",
		}
	default:
		tags := make([]string, len(matches))
		for i, m := range matches {
			tags[i] = m.Tag
		}
		return ReleaseEntry{}, &ResolverError{
			Type:    ErrTypeAmbiguous,
			Source:  src.SourceDescription(),
			Version: selector,
			Message: fmt.Sprintf("%d releases match (%s)", len(matches), strings.Join(tags, ", ")),
		}
	}
}

// Latest resolves the most recent release.
func (c *Catalog) Latest(ctx context.Context, useArchive bool) (ReleaseEntry, error) {
	return c.Resolve(ctx, Latest, useArchive)
}

// withSelector records the selector on a source failure that does not
// already carry one. The source's error value is not modified.
func withSelector(err error, selector string) error {
	re, ok := err.(*ResolverError)
	if !ok || re.Version != "" {
		return err
	}
	annotated := *re
	annotated.Version = selector
	return &annotated
}
