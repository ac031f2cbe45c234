package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultDiscoveryURL is where a locally started browser serves its HTTP
// discovery endpoints.
const DefaultDiscoveryURL = "http://127.0.0.1:9222"

// ErrNoEndpoint is returned when no protocol endpoint can be determined.
var ErrNoEndpoint = errors.New("no protocol endpoint could be determined")

// Target is an entry from the /json/list discovery endpoint.
type Target struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Description  string `json:"description,omitempty"`
	WebSocketURL string `json:"webSocketDebuggerUrl"`
}

// VersionInfo contains browser version information from /json/version.
type VersionInfo struct {
	Browser      string `json:"Browser"`
	ProtocolVer  string `json:"Protocol-Version"`
	UserAgent    string `json:"User-Agent"`
	V8Version    string `json:"V8-Version"`
	WebSocketURL string `json:"webSocketDebuggerUrl"`
}

// FetchTargets retrieves the list of available targets from the discovery service.
// Callers must provide a context with timeout; http.DefaultClient has none.
func FetchTargets(ctx context.Context, baseURL string) ([]Target, error) {
	var targets []Target
	if err := getJSON(ctx, strings.TrimRight(baseURL, "/")+"/json/list", &targets); err != nil {
		return nil, fmt.Errorf("fetch targets: %w", err)
	}
	return targets, nil
}

// FetchVersion retrieves browser version info, including the browser-level
// protocol endpoint.
func FetchVersion(ctx context.Context, baseURL string) (*VersionInfo, error) {
	var info VersionInfo
	if err := getJSON(ctx, strings.TrimRight(baseURL, "/")+"/json/version", &info); err != nil {
		return nil, fmt.Errorf("fetch version: %w", err)
	}
	return &info, nil
}

func getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Browsable returns the page targets that expose a debugger endpoint.
func Browsable(targets []Target) []Target {
	var pages []Target
	for _, t := range targets {
		if t.Type == "page" && t.WebSocketURL != "" {
			pages = append(pages, t)
		}
	}
	return pages
}

// BrowserURL derives the base protocol endpoint from a target's debugger URL
// by keeping only its scheme, host and query. Pool managers accept the root
// path as the browser endpoint.
func BrowserURL(targetWSURL string) (string, error) {
	u, err := url.Parse(targetWSURL)
	if err != nil {
		return "", fmt.Errorf("parse debugger URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("debugger URL %q is not a WebSocket URL", targetWSURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("debugger URL %q has no host", targetWSURL)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/", RawQuery: u.RawQuery}).String(), nil
}

// ResolveEndpoint returns the browser-level protocol endpoint behind a
// discovery service. /json/version is preferred; otherwise the endpoint is
// derived from the given target.
func ResolveEndpoint(ctx context.Context, baseURL string, target *Target) (string, error) {
	if info, err := FetchVersion(ctx, baseURL); err == nil && info.WebSocketURL != "" {
		return info.WebSocketURL, nil
	}
	if target == nil || target.WebSocketURL == "" {
		return "", ErrNoEndpoint
	}
	return BrowserURL(target.WebSocketURL)
}

// WithLaunchToken adds the launch settings token to an endpoint so that a
// pool manager hands out a fresh browser configured by it.
func WithLaunchToken(endpoint, token string) (string, error) {
	if token == "" {
		return endpoint, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("launch", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
