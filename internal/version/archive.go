package version

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"

	"golang.org/x/net/html"

	"github.com/fdbesanto2/portalr/internal/httputil"
	"github.com/fdbesanto2/portalr/internal/log"
)

// maxLandingPageSize bounds how much of the landing page is read.
const maxLandingPageSize = 5 << 20

var (
	// artifactPathPattern matches file-hosting paths such as
	// /records/1215988/files/weecology/PortalData-5.10.0.zip.
	artifactPathPattern = regexp.MustCompile(`^/records?/[0-9]+/files/(?:[^/]+/)*[^/]*[0-9]+\.[0-9]+\.[0-9]+\.zip$`)
	artifactVersion     = regexp.MustCompile(`([0-9]+)\.([0-9]+)\.([0-9]+)\.zip$`)
)

// ArchiveSource scrapes the latest release from the archive mirror's landing
// page. It can only report one release.
type ArchiveSource struct {
	pageURL    string
	httpClient *http.Client
	logger     log.Logger
}

// NewArchiveSource creates a source for the landing page at pageURL.
func NewArchiveSource(pageURL string, opts ...Option) (*ArchiveSource, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid archive URL %q", pageURL)
	}
	o := newOptions(opts)
	if o.httpClient == nil {
		o.httpClient = httputil.NewSecureClient(httputil.DefaultOptions())
	}
	return &ArchiveSource{pageURL: pageURL, httpClient: o.httpClient, logger: o.logger}, nil
}

// SourceDescription implements Source.
func (s *ArchiveSource) SourceDescription() string {
	return "archive " + log.SanitizeURL(s.pageURL)
}

// ListReleases implements Source. The result always holds exactly one entry.
func (s *ArchiveSource) ListReleases(ctx context.Context) ([]ReleaseEntry, error) {
	src := s.SourceDescription()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	s.logger.Debug("fetching archive landing page", "url", log.SanitizeURL(s.pageURL))
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, wrapNetworkError(err, src, "failed to fetch landing page")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t := ErrTypeUnexpectedStatus
		if resp.StatusCode == http.StatusNotFound {
			t = ErrTypeNotFound
		} else if resp.StatusCode == http.StatusTooManyRequests {
			t = ErrTypeRateLimit
		}
		return nil, &ResolverError{
			Type:       t,
			Source:     src,
			Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	ct := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "text/html" {
		return nil, &ResolverError{
			Type:       ErrTypeMalformedResponse,
			Source:     src,
			Message:    fmt.Sprintf("expected an HTML page, got content type %q", ct),
			StatusCode: resp.StatusCode,
		}
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxLandingPageSize))
	if err != nil {
		// Parse only fails on read errors.
		return nil, wrapNetworkError(err, src, "failed to read landing page")
	}

	// Redirects may have moved the page; resolve links against where it
	// was actually served from.
	base := resp.Request.URL
	artifacts := matchArtifacts(base, collectLinks(doc))
	if len(artifacts) != 1 {
		return nil, &ResolverError{
			Type:    ErrTypeMalformedResponse,
			Source:  src,
			Message: fmt.Sprintf("expected exactly one artifact link on the landing page, found %d", len(artifacts)),
		}
	}

	artifact := artifacts[0]
	v, tag, err := versionFromArtifact(artifact)
	if err != nil {
		return nil, &ResolverError{
			Type:    ErrTypeMalformedResponse,
			Source:  src,
			Message: "artifact file name carries no version",
			Err:     err,
		}
	}

	s.logger.Debug("found archive artifact", "version", tag, "url", log.SanitizeURL(artifact))
	return []ReleaseEntry{{Tag: tag, Version: v, URL: artifact}}, nil
}

// collectLinks returns the href of every a and link element in document order.
func collectLinks(n *html.Node) []string {
	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "link") {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					hrefs = append(hrefs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return hrefs
}

// matchArtifacts resolves hrefs against base and keeps those on the
// file-hosting path. Links differing only in their query or fragment (a
// preview link and a ?download=1 link) count once; the first seen is kept.
func matchArtifacts(base *url.URL, hrefs []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, href := range hrefs {
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if !artifactPathPattern.MatchString(abs.Path) {
			continue
		}
		key := *abs
		key.RawQuery, key.Fragment = "", ""
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		abs.Fragment = ""
		out = append(out, abs.String())
	}
	return out
}

// versionFromArtifact pulls major.minor.patch out of the artifact file name.
func versionFromArtifact(artifact string) (VersionCode, string, error) {
	u, err := url.Parse(artifact)
	if err != nil {
		return VersionCode{}, "", err
	}
	m := artifactVersion.FindStringSubmatch(path.Base(u.Path))
	if m == nil {
		return VersionCode{}, "", fmt.Errorf("no version in %q", path.Base(u.Path))
	}
	var parts [3]uint64
	for i := range parts {
		n, err := strconv.ParseUint(m[i+1], 10, 64)
		if err != nil {
			return VersionCode{}, "", fmt.Errorf("version component %q: %w", m[i+1], err)
		}
		parts[i] = n
	}
	v := VersionCode{Major: parts[0], Minor: parts[1], Patch: parts[2]}
	return v, v.String(), nil
}
