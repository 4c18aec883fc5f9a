// Package k8s discovers upstream Kubernetes releases from the GitHub tags
// API. Tracks are derived from stable release tags; pre-release bookkeeping
// supports the snap build automation.
package k8s

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/canonical/charm-release/internal/config"
	"github.com/canonical/charm-release/internal/constants"
	apperrors "github.com/canonical/charm-release/internal/errors"
)

// fetchAttempts bounds the retries for a single tags page.
const fetchAttempts = 3

// Client fetches Kubernetes release tags.
type Client struct {
	http    *http.Client
	tagsURL string
	log     zerolog.Logger
}

// NewClient returns a release discovery client.
func NewClient(cfg config.K8sConfig, log zerolog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		tagsURL: cfg.TagsURL,
		log:     log.With().Str("component", "k8s").Logger(),
	}
}

// WithTagsURL overrides the tags endpoint. Used by tests.
func (c *Client) WithTagsURL(url string) *Client {
	c.tagsURL = url
	return c
}

// IsStableRelease reports whether a release tag carries no pre-release
// suffix, e.g. "v1.32.1" is stable and "v1.33.0-alpha.1" is not.
func IsStableRelease(tag string) bool {
	return !strings.Contains(tag, "-")
}

// Tags returns every Kubernetes release tag, newest first, following the
// API's pagination. Tags that do not parse as versions are dropped.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	url := c.tagsURL
	var names []string

	// GITHUB_TOKEN lifts the anonymous rate limit when available.
	var token string
	if t := os.Getenv(constants.EnvGitHubToken); t != "" {
		token = "token " + t
	}

	for url != "" {
		page, next, err := c.fetchPage(ctx, url, token)
		if err != nil {
			return nil, err
		}
		names = append(names, page...)
		url = next
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no kubernetes tags retrieved", apperrors.ErrNoReleases)
	}

	type tagVersion struct {
		name    string
		version *semver.Version
	}
	parsed := make([]tagVersion, 0, len(names))
	for _, name := range names {
		v, err := semver.NewVersion(name)
		if err != nil {
			continue
		}
		parsed = append(parsed, tagVersion{name: name, version: v})
	}
	sort.Slice(parsed, func(i, j int) bool {
		return parsed[i].version.GreaterThan(parsed[j].version)
	})

	sorted := make([]string, 0, len(parsed))
	for _, tv := range parsed {
		sorted = append(sorted, tv.name)
	}
	return sorted, nil
}

// LatestRelease returns the newest release tag, stable or not.
func (c *Client) LatestRelease(ctx context.Context) (string, error) {
	tags, err := c.Tags(ctx)
	if err != nil {
		return "", err
	}
	return tags[0], nil
}

// LatestStable returns the newest stable release tag.
func (c *Client) LatestStable(ctx context.Context) (string, error) {
	tags, err := c.Tags(ctx)
	if err != nil {
		return "", err
	}
	for _, tag := range tags {
		if IsStableRelease(tag) {
			return tag, nil
		}
	}
	return "", fmt.Errorf("%w: no stable release found", apperrors.ErrNoReleases)
}

// AllReleasesAfter returns every "major.minor" track with a stable release
// at or after the given version, sorted ascending.
func (c *Client) AllReleasesAfter(ctx context.Context, release string) ([]string, error) {
	least, err := semver.NewVersion(release)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a valid version", apperrors.ErrInvalidTrack, release)
	}

	tags, err := c.Tags(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]*semver.Version)
	for _, tag := range tags {
		if !IsStableRelease(tag) {
			continue
		}
		v, err := semver.NewVersion(tag)
		if err != nil {
			continue
		}
		if v.Major() < least.Major() {
			continue
		}
		if v.Major() == least.Major() && v.Minor() < least.Minor() {
			continue
		}
		track := fmt.Sprintf("%d.%d", v.Major(), v.Minor())
		seen[track] = semver.New(v.Major(), v.Minor(), 0, "", "")
	}

	tracks := make([]string, 0, len(seen))
	for track := range seen {
		tracks = append(tracks, track)
	}
	sort.Slice(tracks, func(i, j int) bool {
		return seen[tracks[i]].LessThan(seen[tracks[j]])
	})
	return tracks, nil
}

// OutstandingPrerelease returns the latest release tag if it is a
// pre-release without a newer stable release, or "".
func (c *Client) OutstandingPrerelease(ctx context.Context) (string, error) {
	latest, err := c.LatestRelease(ctx)
	if err != nil {
		return "", err
	}
	if !IsStableRelease(latest) {
		return latest, nil
	}
	return "", nil
}

// ObsoletePrereleases returns every pre-release tag that has been superseded.
// Only the newest tag is kept when it is itself a pre-release; all older
// pre-releases are obsolete.
func (c *Client) ObsoletePrereleases(ctx context.Context) ([]string, error) {
	tags, err := c.Tags(ctx)
	if err != nil {
		return nil, err
	}
	if !IsStableRelease(tags[0]) {
		tags = tags[1:]
	}
	var obsolete []string
	for _, tag := range tags {
		if !IsStableRelease(tag) {
			obsolete = append(obsolete, tag)
		}
	}
	return obsolete, nil
}

// fetchPage fetches one tags page with retry and returns the tag names plus
// the next page URL from the Link header.
func (c *Client) fetchPage(ctx context.Context, url, token string) ([]string, string, error) {
	type pageResult struct {
		names []string
		next  string
	}

	result, err := backoff.Retry(ctx, func() (pageResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return pageResult{}, backoff.Permanent(err)
		}
		if token != "" {
			req.Header.Set("Authorization", token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return pageResult{}, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return pageResult{}, fmt.Errorf("tags request returned %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return pageResult{}, err
		}

		var page []struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &page); err != nil {
			return pageResult{}, backoff.Permanent(err)
		}

		names := make([]string, 0, len(page))
		for _, tag := range page {
			names = append(names, tag.Name)
		}
		return pageResult{names: names, next: nextPageURL(resp.Header.Get("Link"))}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(fetchAttempts))
	if err != nil {
		return nil, "", fmt.Errorf("kubernetes tags fetch: %v: %w", err, apperrors.ErrQueryFailed)
	}
	return result.names, result.next, nil
}

// nextPageURL extracts the rel="next" target from a Link header, or "".
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		urlPart := strings.Trim(strings.TrimSpace(section[0]), "<>")
		for _, param := range section[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return urlPart
			}
		}
	}
	return ""
}
