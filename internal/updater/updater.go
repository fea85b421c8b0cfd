// Package updater checks GitHub for newer semantic-hooks releases and can
// replace the running binary with the latest one.
//
// The check is best-effort: network failures read as "no update". The
// replacement is atomic (temp file in the same directory, then rename), and
// the host agent picks the new binary up on the next hook invocation.
package updater

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

const (
	// Repo is the GitHub repository releases are published to.
	Repo = "HendryAvila/semantic-hooks"
	// BinaryName is the executable inside each release archive.
	BinaryName = "semantic-hooks"

	latestURL    = "https://api.github.com/repos/" + Repo + "/releases/latest"
	checkTimeout = 10 * time.Second
)

// ErrUpToDate is returned by Update when no newer release exists.
var ErrUpToDate = errors.New("updater: already at the latest version")

// Release holds the fields of a GitHub release we use.
type Release struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is one downloadable file of a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Check is the outcome of comparing the running version with the latest
// release.
type Check struct {
	Current    string
	Latest     string
	Available  bool
	ReleaseURL string
}

// Client talks to the releases API. The zero value is not usable; call New.
type Client struct {
	Endpoint string
	HTTP     *http.Client
	GOOS     string
	GOARCH   string
}

// New returns a client for the public GitHub API and the running platform.
func New() *Client {
	return &Client{
		Endpoint: latestURL,
		HTTP:     &http.Client{Timeout: checkTimeout},
		GOOS:     runtime.GOOS,
		GOARCH:   runtime.GOARCH,
	}
}

// Latest fetches the latest release.
func (c *Client) Latest(ctx context.Context, current string) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("updater: request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", BinaryName+"/"+current)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("updater: check latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("updater: releases API returned %d", resp.StatusCode)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("updater: parse release: %w", err)
	}
	return &rel, nil
}

// Check compares current with the latest release. Errors leave
// Available false.
func (c *Client) Check(ctx context.Context, current string) Check {
	res := Check{Current: normalizeVersion(current)}
	rel, err := c.Latest(ctx, current)
	if err != nil {
		return res
	}
	res.Latest = normalizeVersion(rel.TagName)
	res.ReleaseURL = rel.HTMLURL
	res.Available = isNewer(res.Current, res.Latest)
	return res
}

// Update downloads the release archive for this platform and atomically
// replaces the executable at execPath. It returns the installed version.
func (c *Client) Update(ctx context.Context, current, execPath string) (string, error) {
	rel, err := c.Latest(ctx, current)
	if err != nil {
		return "", err
	}
	latest := normalizeVersion(rel.TagName)
	if !isNewer(normalizeVersion(current), latest) {
		return "", fmt.Errorf("%w (%s)", ErrUpToDate, normalizeVersion(current))
	}

	name := c.AssetName(latest)
	if strings.HasSuffix(name, ".zip") {
		return "", fmt.Errorf("updater: automatic update is not supported on %s; download %s from %s",
			c.GOOS, name, rel.HTMLURL)
	}
	var url string
	for _, a := range rel.Assets {
		if a.Name == name {
			url = a.BrowserDownloadURL
			break
		}
	}
	if url == "" {
		return "", fmt.Errorf("updater: no release asset %s for %s/%s", name, c.GOOS, c.GOARCH)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("updater: request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("updater: download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("updater: download returned %d", resp.StatusCode)
	}

	bin, err := extractBinary(resp.Body)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	if err := renameio.WriteFile(execPath, bin, 0o755); err != nil {
		return "", fmt.Errorf("updater: replace binary: %w", err)
	}
	return latest, nil
}

// AssetName is the archive name GoReleaser publishes for version on this
// client's platform.
func (c *Client) AssetName(version string) string {
	ext := "tar.gz"
	if c.GOOS == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", BinaryName, version, c.GOOS, c.GOARCH, ext)
}

// extractBinary returns the executable from a .tar.gz archive.
func extractBinary(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("updater: open gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("updater: %s not found in archive", BinaryName)
		}
		if err != nil {
			return nil, fmt.Errorf("updater: read tar: %w", err)
		}
		if filepath.Base(h.Name) == BinaryName {
			b, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("updater: read binary: %w", err)
			}
			return b, nil
		}
	}
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// isNewer compares major.minor.patch numerically. Development builds never
// report an update.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	cur, lat := versionParts(current), versionParts(latest)
	for i := range cur {
		if lat[i] != cur[i] {
			return lat[i] > cur[i]
		}
	}
	return false
}

// versionParts parses the leading digits of each of the first three
// components; anything else counts as 0.
func versionParts(v string) [3]int {
	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		end := 0
		for end < len(p) && p[end] >= '0' && p[end] <= '9' {
			end++
		}
		out[i], _ = strconv.Atoi(p[:end])
	}
	return out
}
