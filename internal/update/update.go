// Package update checks a release feed for newer versions.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

// VersionInfo describes the result of a check.
type VersionInfo struct {
	Current     string
	Latest      string
	URL         string
	PublishedAt time.Time
	Available   bool
}

// Checker queries a GitHub-style "latest release" endpoint.
type Checker struct {
	url     string
	current string
	client  *http.Client
	logger  *zap.Logger
}

// Option configures a Checker.
type Option func(*Checker)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		if client != nil {
			c.client = client
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a checker comparing releases at url against current.
func New(url, current string, opts ...Option) *Checker {
	c := &Checker{
		url:     url,
		current: current,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Canonical normalizes a version tag to semver form with a "v" prefix.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// CheckForNewVersion fetches the latest release. Development builds never
// report an update.
func (c *Checker) CheckForNewVersion(ctx context.Context) (VersionInfo, error) {
	info := VersionInfo{Current: c.current}
	if c.url == "" {
		return info, fmt.Errorf("update url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.url, nil)
	if err != nil {
		return info, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return info, fmt.Errorf("update check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return info, fmt.Errorf("release API returned status: %d", resp.StatusCode)
	}

	var release struct {
		TagName     string    `json:"tag_name"`
		HTMLURL     string    `json:"html_url"`
		PublishedAt time.Time `json:"published_at"`
		Draft       bool      `json:"draft"`
		Prerelease  bool      `json:"prerelease"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return info, fmt.Errorf("failed to decode release: %w", err)
	}

	latest := Canonical(release.TagName)
	if latest == "" {
		return info, fmt.Errorf("release tag %q is not a version", release.TagName)
	}

	info.Latest = latest
	info.URL = release.HTMLURL
	info.PublishedAt = release.PublishedAt

	current := Canonical(c.current)
	if current != "" && !release.Draft && !release.Prerelease {
		info.Available = semver.Compare(latest, current) > 0
	}

	c.logger.Info("update check finished",
		zap.String("current", c.current),
		zap.String("latest", latest),
		zap.Bool("available", info.Available),
	)
	return info, nil
}
