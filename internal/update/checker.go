// Package update implements the auto-update command pair exposed to the
// front end: a release-feed check and a download-and-stage install.
// Producing installer packages is out of scope; install ends at
// "downloaded, restart to apply".
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/siri-labs/siri-billing/internal/constants"
	"github.com/siri-labs/siri-billing/internal/logging"
)

// NoUpdateStatus is the exact status string reported when the running
// version is current. Front-end and support tooling match on it.
const NoUpdateStatus = "No update available."

// Result describes the outcome of a release-feed check.
type Result struct {
	HasUpdate      bool
	CurrentVersion string
	LatestVersion  string
	ReleaseURL     string
	Assets         []Asset
	CheckedAt      time.Time
}

// Asset is a downloadable artifact attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
}

// githubRelease mirrors the GitHub latest-release API response.
type githubRelease struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Checker queries the GitHub release feed for newer versions. Results are
// cached so repeated UI polls don't hammer the API.
type Checker struct {
	repo    string
	current string
	apiBase string
	client  *http.Client
	logger  *logging.Logger

	mu        sync.Mutex
	cached    *Result
	lastCheck time.Time
}

// NewChecker creates a checker for the given "owner/repo" feed, comparing
// against the given running version.
func NewChecker(repo, currentVersion string) *Checker {
	return &Checker{
		repo:    repo,
		current: currentVersion,
		apiBase: "https://api.github.com",
		client: &http.Client{
			Timeout: constants.UpdateCheckTimeout,
		},
		logger: logging.NewLogger("update"),
	}
}

// Check queries the release feed, returning a cached result when one is
// still fresh. Transport and decoding failures surface as errors; they are
// never fatal to the application.
func (c *Checker) Check(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	if c.cached != nil && time.Since(c.lastCheck) < constants.UpdateCacheDuration {
		cached := *c.cached
		c.mu.Unlock()
		c.logger.Debug().Msg("Using cached update check result")
		return &cached, nil
	}
	c.mu.Unlock()

	result, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cached = result
	c.lastCheck = time.Now()
	c.mu.Unlock()

	return result, nil
}

// Status renders a check result as the user-facing status string.
func (c *Checker) Status(r *Result) string {
	if r.HasUpdate {
		return fmt.Sprintf("Update available: %s", r.LatestVersion)
	}
	return NoUpdateStatus
}

func (c *Checker) fetch(ctx context.Context) (*Result, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, c.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build update check request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("SiriBilling/%s", c.current))
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("update check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read release feed response: %w", err)
	}

	var release githubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("failed to parse release feed response: %w", err)
	}

	result := &Result{
		CurrentVersion: c.current,
		LatestVersion:  release.TagName,
		ReleaseURL:     release.HTMLURL,
		Assets:         release.Assets,
		CheckedAt:      time.Now().UTC(),
	}

	if compareVersions(c.current, release.TagName) < 0 {
		result.HasUpdate = true
		c.logger.Info().
			Str("current", c.current).
			Str("latest", release.TagName).
			Msg("Update available")
	} else {
		c.logger.Info().Str("current", c.current).Msg("Running version is up to date")
	}

	return result, nil
}

// compareVersions compares two semantic version strings.
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2.
// Strips the 'v' prefix and any suffix after a hyphen (e.g. "-dev"), then
// compares major.minor.patch numerically.
func compareVersions(v1, v2 string) int {
	v1 = strings.TrimPrefix(v1, "v")
	v2 = strings.TrimPrefix(v2, "v")

	if idx := strings.Index(v1, "-"); idx != -1 {
		v1 = v1[:idx]
	}
	if idx := strings.Index(v2, "-"); idx != -1 {
		v2 = v2[:idx]
	}

	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")

	maxLen := len(parts1)
	if len(parts2) > maxLen {
		maxLen = len(parts2)
	}

	for i := 0; i < maxLen; i++ {
		var p1, p2 int

		if i < len(parts1) {
			p1, _ = strconv.Atoi(parts1[i])
		}
		if i < len(parts2) {
			p2, _ = strconv.Atoi(parts2[i])
		}

		if p1 < p2 {
			return -1
		}
		if p1 > p2 {
			return 1
		}
	}

	return 0
}
