package version

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/fdbesanto2/portalr/internal/httputil"
	"github.com/fdbesanto2/portalr/internal/log"
)

// releasesPerPage is the largest page size the releases API accepts.
const releasesPerPage = 100

// GitHubSource lists releases of a GitHub repository, following every page
// of the releases API.
type GitHubSource struct {
	owner         string
	repo          string
	client        *github.Client
	authenticated bool
	maxPages      int
	logger        log.Logger
}

// NewGitHubSource creates a source for repo in owner/name form.
func NewGitHubSource(repo string, opts ...Option) (*GitHubSource, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid repository %q (expected owner/repo)", repo)
	}

	o := newOptions(opts)
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = httputil.NewSecureClient(httputil.DefaultOptions())
	}
	if o.token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.token})
		httpClient = oauth2.NewClient(context.WithValue(context.Background(), oauth2.HTTPClient, httpClient), ts)
	}

	client := github.NewClient(httpClient)
	client.UserAgent = httputil.DefaultUserAgent
	if o.baseURL != "" {
		u, err := url.Parse(o.baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL %q: %w", o.baseURL, err)
		}
		// go-github resolves request paths relative to BaseURL.
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		client.BaseURL = u
	}

	return &GitHubSource{
		owner:         owner,
		repo:          name,
		client:        client,
		authenticated: o.token != "",
		maxPages:      o.maxPages,
		logger:        o.logger,
	}, nil
}

// SourceDescription implements Source.
func (s *GitHubSource) SourceDescription() string {
	return fmt.Sprintf("github %s/%s", s.owner, s.repo)
}

// pageState is the pagination state of a listing.
type pageState int

const (
	fetchingPage pageState = iota
	pagesDone
)

// ListReleases implements Source. Pages are fetched sequentially since the
// continuation of page n is only known once page n has arrived. Entries are
// appended in page order, preserving order within a page.
func (s *GitHubSource) ListReleases(ctx context.Context) ([]ReleaseEntry, error) {
	var entries []ReleaseEntry
	state, page, fetched := fetchingPage, 1, 0

	for state == fetchingPage {
		if fetched >= s.maxPages {
			return nil, &ResolverError{
				Type:    ErrTypeMalformedResponse,
				Source:  s.SourceDescription(),
				Message: fmt.Sprintf("release listing did not end after %d pages", s.maxPages),
			}
		}

		s.logger.Debug("fetching releases page", "source", s.SourceDescription(), "page", page)
		releases, resp, err := s.client.Repositories.ListReleases(ctx, s.owner, s.repo,
			&github.ListOptions{Page: page, PerPage: releasesPerPage})
		if err != nil {
			return nil, s.classify(err, resp)
		}
		if err := s.checkContentType(resp); err != nil {
			return nil, err
		}
		fetched++

		for _, rel := range releases {
			entry, err := s.toEntry(rel)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}

		page, state = nextPage(resp, page)
	}

	s.logger.Debug("listed releases", "source", s.SourceDescription(), "count", len(entries), "pages", fetched)
	return entries, nil
}

// nextPage picks the page to request after current. A "next" relation is
// followed directly; a "last" relation beyond the current page advances by
// one; no relation ends the listing.
func nextPage(resp *github.Response, current int) (int, pageState) {
	switch {
	case resp.NextPage != 0:
		return resp.NextPage, fetchingPage
	case resp.LastPage > current:
		return current + 1, fetchingPage
	default:
		return current, pagesDone
	}
}

func (s *GitHubSource) toEntry(rel *github.RepositoryRelease) (ReleaseEntry, error) {
	tag, zipURL := rel.GetTagName(), rel.GetZipballURL()
	if tag == "" || zipURL == "" {
		return ReleaseEntry{}, &ResolverError{
			Type:    ErrTypeMalformedResponse,
			Source:  s.SourceDescription(),
			Message: fmt.Sprintf("release %d is missing tag_name or zipball_url", rel.GetID()),
		}
	}
	v, err := ParseLenient(tag)
	if err != nil {
		return ReleaseEntry{}, &ResolverError{
			Type:    ErrTypeMalformedResponse,
			Source:  s.SourceDescription(),
			Message: "release tag is not a version",
			Err:     err,
		}
	}
	return ReleaseEntry{Tag: tag, Version: v, URL: zipURL}, nil
}

// checkContentType rejects successful responses that are not JSON, such as
// captive portal or proxy error pages.
func (s *GitHubSource) checkContentType(resp *github.Response) error {
	if resp == nil || resp.Response == nil {
		return nil
	}
	ct := resp.Header.Get("Content-Type")
	if isJSON(ct) {
		return nil
	}
	return &ResolverError{
		Type:       ErrTypeMalformedResponse,
		Source:     s.SourceDescription(),
		Message:    fmt.Sprintf("unexpected content type %q", ct),
		StatusCode: resp.StatusCode,
	}
}

// classify turns a go-github error into a ResolverError.
func (s *GitHubSource) classify(err error, resp *github.Response) error {
	src := s.SourceDescription()

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		status := http.StatusForbidden
		if rateErr.Response != nil {
			status = rateErr.Response.StatusCode
		}
		return &ResolverError{
			Type:          ErrTypeRateLimit,
			Source:        src,
			Message:       fmt.Sprintf("API rate limit exceeded (%d of %d remaining)", rateErr.Rate.Remaining, rateErr.Rate.Limit),
			Err:           err,
			StatusCode:    status,
			Reset:         rateErr.Rate.Reset.Time,
			Authenticated: s.authenticated,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		re := &ResolverError{
			Type:          ErrTypeRateLimit,
			Source:        src,
			Message:       "secondary rate limit exceeded",
			Err:           err,
			StatusCode:    http.StatusForbidden,
			Authenticated: s.authenticated,
		}
		if d := abuseErr.GetRetryAfter(); d > 0 && abuseErr.Response != nil {
			if date, perr := http.ParseTime(abuseErr.Response.Header.Get("Date")); perr == nil {
				re.Reset = date.Add(d)
			}
		}
		return re
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return s.classifyStatus(errResp.Response, err)
	}

	// A success status with a body go-github could not decode.
	if resp != nil && resp.Response != nil && resp.StatusCode/100 == 2 {
		if ctErr := s.checkContentType(resp); ctErr != nil {
			return ctErr
		}
		return &ResolverError{
			Type:       ErrTypeMalformedResponse,
			Source:     src,
			Message:    "failed to decode releases",
			Err:        err,
			StatusCode: resp.StatusCode,
		}
	}
	if resp != nil && resp.Response != nil {
		return s.classifyStatus(resp.Response, err)
	}

	return wrapNetworkError(err, src, "failed to fetch releases")
}

func (s *GitHubSource) classifyStatus(r *http.Response, err error) error {
	src := s.SourceDescription()
	switch {
	case r.StatusCode == http.StatusUnauthorized:
		return &ResolverError{
			Type:          ErrTypeAuth,
			Source:        src,
			Message:       "API rejected the credential",
			Err:           err,
			StatusCode:    r.StatusCode,
			Authenticated: s.authenticated,
		}
	case r.StatusCode == http.StatusTooManyRequests || (r.StatusCode == http.StatusForbidden && rateLimitExhausted(r.Header)):
		re := &ResolverError{
			Type:          ErrTypeRateLimit,
			Source:        src,
			Message:       "API rate limit exceeded",
			Err:           err,
			StatusCode:    r.StatusCode,
			Authenticated: s.authenticated,
		}
		if epoch, perr := strconv.ParseInt(r.Header.Get("X-RateLimit-Reset"), 10, 64); perr == nil {
			re.Reset = time.Unix(epoch, 0)
		}
		return re
	case r.StatusCode == http.StatusNotFound:
		return &ResolverError{
			Type:       ErrTypeRepositoryNotFound,
			Source:     src,
			Message:    "repository not found",
			Err:        err,
			StatusCode: r.StatusCode,
		}
	default:
		return &ResolverError{
			Type:       ErrTypeUnexpectedStatus,
			Source:     src,
			Message:    fmt.Sprintf("unexpected status %d", r.StatusCode),
			Err:        err,
			StatusCode: r.StatusCode,
		}
	}
}

// rateLimitExhausted reports whether the remaining-requests header is
// present and numeric with no requests left.
func rateLimitExhausted(h http.Header) bool {
	n, err := strconv.Atoi(strings.TrimSpace(h.Get("X-RateLimit-Remaining")))
	return err == nil && n <= 0
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
