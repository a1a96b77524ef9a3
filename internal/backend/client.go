// Package backend is the HTTP client for the diagterm monitoring backend.
//
// A Client is bound to one base URL for its whole life; switching backends
// means building a new Client. Nothing here retries or mutates connection
// state: callers decide what a failure means.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rileyhilliard/diagterm/internal/logger"
	"github.com/tidwall/gjson"
)

// API paths served by the backend.
const (
	PathCapabilities = "/api/capabilities"
	PathSummary      = "/api/summary"
	PathProcesses    = "/api/processes"
	PathServices     = "/api/services"
	PathDiagnostics  = "/api/diagnostics"
	PathRun          = "/api/run"
)

const (
	// DefaultBaseURL is where a locally started backend listens.
	DefaultBaseURL = "http://127.0.0.1:8765"

	// DefaultProbeTimeout bounds each TestConnection probe.
	DefaultProbeTimeout = 5 * time.Second

	DefaultProcessLimit     = 25
	DefaultServiceLimit     = 25
	DefaultDiagnosticsLimit = 120

	// maxErrorBody caps how much of an error response is read for a detail message.
	maxErrorBody = 8 << 10

	userAgent = "diagterm-cli"
)

// API is the set of backend calls the rest of diagterm depends on.
type API interface {
	BaseURL() string
	TestConnection(ctx context.Context) (*Capabilities, error)
	Summary(ctx context.Context) (*SystemSummary, error)
	Processes(ctx context.Context, limit int) ([]ProcRow, error)
	Services(ctx context.Context, limit int) ([]ServiceRow, error)
	Diagnostics(ctx context.Context, limit int) ([]string, error)
	Run(ctx context.Context, cmd string, timeoutSeconds float64) (*RunResult, error)
}

// Client talks to one backend over HTTP.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	probeTimeout time.Duration
	log          logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithProbeTimeout sets the per-probe timeout used by TestConnection.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client for baseURL. The URL is normalized (see NormalizeURL).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      NormalizeURL(baseURL),
		httpClient:   &http.Client{},
		probeTimeout: DefaultProbeTimeout,
		log:          logger.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeURL trims whitespace and trailing slashes from a base URL.
func NormalizeURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// ParseBaseURL normalizes raw and checks it is an absolute http(s) URL.
func ParseBaseURL(raw string) (string, error) {
	normalized := NormalizeURL(raw)
	if normalized == "" {
		return "", fmt.Errorf("backend URL is empty")
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("invalid backend URL %q: %w", normalized, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid backend URL %q: scheme must be http or https", normalized)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid backend URL %q: missing host", normalized)
	}
	return normalized, nil
}

// BaseURL returns the normalized base URL this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TestConnection checks that the backend is reachable and returns its capabilities.
//
// It probes /api/capabilities first. If that fails for any reason it probes
// /api/summary and, when that succeeds, returns FallbackCapabilities. Each probe
// is bounded by the probe timeout; if the summary probe times out the error is
// ErrConnectionTimeout.
func (c *Client) TestConnection(ctx context.Context) (*Capabilities, error) {
	caps, err := c.probeCapabilities(ctx)
	if err == nil {
		return caps, nil
	}
	c.log.Debug("capabilities probe on %s failed, trying summary: %v", c.baseURL, err)

	if err := c.probeSummary(ctx); err != nil {
		return nil, err
	}

	fallback := FallbackCapabilities()
	return &fallback, nil
}

func (c *Client) probeCapabilities(ctx context.Context) (*Capabilities, error) {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	var caps Capabilities
	if err := c.getJSON(probeCtx, PathCapabilities, nil, &caps); err != nil {
		return nil, c.classifyProbeError(ctx, probeCtx, err)
	}
	return &caps, nil
}

func (c *Client) probeSummary(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	resp, err := c.do(probeCtx, http.MethodGet, PathSummary, nil, nil)
	if err != nil {
		return c.classifyProbeError(ctx, probeCtx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if !isSuccess(resp.StatusCode) {
		return newBackendError(resp)
	}
	return nil
}

// classifyProbeError maps a probe deadline to ErrConnectionTimeout. Cancellation
// of the caller's own context is passed through unchanged.
func (c *Client) classifyProbeError(parent, probeCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
		return ErrConnectionTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrConnectionTimeout
	}
	return err
}

// Summary fetches the host summary.
func (c *Client) Summary(ctx context.Context) (*SystemSummary, error) {
	var s SystemSummary
	if err := c.getJSON(ctx, PathSummary, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Processes fetches the top processes. A non-positive limit uses the default.
func (c *Client) Processes(ctx context.Context, limit int) ([]ProcRow, error) {
	var resp processesResponse
	if err := c.getJSON(ctx, PathProcesses, limitQuery(limit, DefaultProcessLimit), &resp); err != nil {
		return nil, err
	}
	if resp.Processes == nil {
		return []ProcRow{}, nil
	}
	return resp.Processes, nil
}

// Services fetches running services. A non-positive limit uses the default.
func (c *Client) Services(ctx context.Context, limit int) ([]ServiceRow, error) {
	var resp servicesResponse
	if err := c.getJSON(ctx, PathServices, limitQuery(limit, DefaultServiceLimit), &resp); err != nil {
		return nil, err
	}
	if resp.Services == nil {
		return []ServiceRow{}, nil
	}
	return resp.Services, nil
}

// Diagnostics fetches recent warning/error log lines, oldest first.
func (c *Client) Diagnostics(ctx context.Context, limit int) ([]string, error) {
	var resp diagnosticsResponse
	if err := c.getJSON(ctx, PathDiagnostics, limitQuery(limit, DefaultDiagnosticsLimit), &resp); err != nil {
		return nil, err
	}
	if resp.Lines == nil {
		return []string{}, nil
	}
	return resp.Lines, nil
}

// Run asks the backend to execute cmd in its shell. timeoutSeconds is enforced
// by the backend; the request itself is bounded only by ctx.
//
// On a non-2xx response the error is a *BackendError whose message is the
// body's "detail" field when present.
func (c *Client) Run(ctx context.Context, cmd string, timeoutSeconds float64) (*RunResult, error) {
	body, err := json.Marshal(RunRequest{Cmd: cmd, TimeoutS: timeoutSeconds})
	if err != nil {
		return nil, fmt.Errorf("encode run request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, PathRun, nil, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, readRunError(resp)
	}

	var result RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", PathRun, err)
	}
	return &result, nil
}

// readRunError extracts "detail" from a JSON error body. Any problem reading or
// parsing the body degrades to the status-line message.
func readRunError(resp *http.Response) error {
	be := newBackendError(resp)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 || !gjson.ValidBytes(data) {
		return be
	}

	detail := gjson.GetBytes(data, "detail")
	if detail.Type == gjson.String {
		be.Detail = strings.TrimSpace(detail.String())
	}
	return be
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return newBackendError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("%s %s id=%s failed after %s: %v", method, path, requestID, time.Since(start), err)
		return nil, err
	}
	c.log.Debug("%s %s id=%s -> %d in %s", method, path, requestID, resp.StatusCode, time.Since(start))
	return resp, nil
}

func limitQuery(limit, def int) url.Values {
	if limit <= 0 {
		limit = def
	}
	return url.Values{"limit": []string{strconv.Itoa(limit)}}
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
