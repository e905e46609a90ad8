package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != DefaultBaseURL {
		t.Fatalf("url = %q, want %q", u.String(), DefaultBaseURL)
	}

	u, err = parseBaseURL("mirror.example.com/archives?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" || u.Path != "/archives" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_FetchArchive(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "secret")

	var gotPath, gotAuth, gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUserAgent = r.Header.Get("User-Agent")
		_, _ = io.WriteString(w, "tarball")
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL + "/mirror/")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	body, err := c.FetchArchive(ctx, "acme/ops", "v1.2")
	if err != nil {
		t.Fatalf("FetchArchive returned error: %v", err)
	}
	data, _ := io.ReadAll(body)
	_ = body.Close()

	if string(data) != "tarball" {
		t.Fatalf("body = %q", data)
	}
	if gotPath != "/mirror/acme/ops/tar.gz/v1.2" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotUserAgent != defaultUserAgent {
		t.Fatalf("User-Agent = %q", gotUserAgent)
	}
}

func TestClient_FetchArchiveErrors(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected Authorization header")
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if _, err := c.FetchArchive(context.Background(), "acme/missing", "main"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v, want status 404", err)
	}
	if _, err := c.FetchArchive(context.Background(), "nope", "main"); err == nil {
		t.Fatal("expected error for malformed repo")
	}
	if _, err := c.FetchArchive(context.Background(), "acme/x", " "); err == nil {
		t.Fatal("expected error for empty ref")
	}

	var nilClient *Client
	if _, err := nilClient.FetchArchive(context.Background(), "acme/x", "main"); err == nil {
		t.Fatal("expected error for nil client")
	}
}
