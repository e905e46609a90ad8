// Package remote downloads source repositories as gzipped tarballs.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// ArchiveFetcher defines the interface for downloading a repository snapshot.
// This interface is implemented by *Client and can be used for testing.
type ArchiveFetcher interface {
	FetchArchive(ctx context.Context, repo, ref string) (io.ReadCloser, error)
}

// Ensure Client implements ArchiveFetcher at compile time.
var _ ArchiveFetcher = (*Client)(nil)

// Client talks to a codeload-style archive endpoint.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	token     string
}

const (
	// DefaultBaseURL serves GET /{owner}/{name}/tar.gz/{ref}.
	DefaultBaseURL   = "https://codeload.github.com"
	defaultUserAgent = "kadai/0.1"
	requestTimeout   = 60 * time.Second
)

// NewClient builds a Client for baseURL. An empty baseURL uses
// DefaultBaseURL. The GITHUB_TOKEN environment variable, when set, is sent
// as a bearer token.
func NewClient(baseURL string) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		token:     strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
	}, nil
}

// FetchArchive streams the gzipped tarball of repo at ref. The caller closes
// the returned body.
func (c *Client) FetchArchive(ctx context.Context, repo, ref string) (io.ReadCloser, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	owner, name, ok := strings.Cut(strings.Trim(repo, "/"), "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("repo %q must be owner/name", repo)
	}
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("ref required")
	}

	base := *c.baseURL
	base.Path = "/" + strings.Trim(base.Path, "/")
	reqURL := base.JoinPath(owner, name, "tar.gz", ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/x-gzip")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode >= 400 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("archive %s@%s returned status %d", repo, ref, resp.StatusCode)
	}
	return resp.Body, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
