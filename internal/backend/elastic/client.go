// Package elastic implements the backend.Indexer contract against an
// Elasticsearch-compatible REST API using plain HTTP.
//
// Design goals:
//
//   - Keep a tiny, explicit API (Exists, Delete, Create, BulkIndex).
//   - Allow skipping TLS verification when talking to endpoints with
//     invalid certificates (e.g., internal test endpoints).
//   - Respect context cancellation during requests.
//   - Be easy to test by injecting a custom RoundTripper.
//
// Retries are structurally supported but default to zero: bulk submission
// is documented at-most-once, and lifecycle failures are surfaced, not
// retried.
package elastic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arctosloader/internal/backend"
)

// Config configures the client.
//
// Zero values are given sensible defaults:
//   - Scheme:  "http"
//   - Host:    "localhost"
//   - Port:    9200
//   - Timeout: 60s
type Config struct {
	// Scheme is "http" or "https".
	Scheme string

	// Host and Port locate the backend node.
	Host string
	Port int

	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification. Useful for
	// self-signed or otherwise invalid certificates, but use with care.
	InsecureSkipVerify bool

	// MaxRetries is the number of retry attempts after the initial request
	// for transient failures (network errors, 429, 5xx). 0 means "no
	// retries", which is the default and keeps bulk calls at-most-once.
	MaxRetries int

	// Transport is an optional custom RoundTripper. When nil, a default
	// *http.Transport is constructed based on the TLS settings.
	Transport http.RoundTripper
}

// Client talks to one Elasticsearch-compatible endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int

	// sleep is injectable to make retry tests fast and deterministic.
	sleep func(time.Duration)
}

// NewClient constructs a Client from Config, applying defaults for zero
// values.
func NewClient(cfg Config) *Client {
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 9200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicitly configurable
			},
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL:    fmt.Sprintf("%s://%s:%d", cfg.Scheme, cfg.Host, cfg.Port),
		maxRetries: cfg.MaxRetries,
		sleep:      time.Sleep,
	}
}

// BaseURL returns the resolved endpoint, mainly for startup logging.
func (c *Client) BaseURL() string { return c.baseURL }

// Exists implements backend.Indexer via HEAD /{name}.
func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, "/"+name, nil, "")
	if err != nil {
		return false, fmt.Errorf("elastic: check collection %q: %w", name, err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("elastic: check collection %q: unexpected status %s", name, resp.Status)
	}
}

// Delete implements backend.Indexer via DELETE /{name}.
func (c *Client) Delete(ctx context.Context, name string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/"+name, nil, "")
	if err != nil {
		return fmt.Errorf("elastic: delete collection %q: %w", name, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("elastic: delete collection %q: %s: %s", name, resp.Status, snippet(resp.Body))
	}
	return nil
}

// Create implements backend.Indexer via PUT /{name} with a mappings body
// generated from the field→native-type table.
func (c *Client) Create(ctx context.Context, name string, fields map[string]string) error {
	properties := make(map[string]any, len(fields))
	for field, typ := range fields {
		properties[field] = map[string]any{"type": typ}
	}
	body, err := json.Marshal(map[string]any{
		"mappings": map[string]any{"properties": properties},
	})
	if err != nil {
		return fmt.Errorf("elastic: encode mapping for %q: %w", name, err)
	}

	resp, err := c.do(ctx, http.MethodPut, "/"+name, body, "application/json")
	if err != nil {
		return fmt.Errorf("elastic: create collection %q: %w", name, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("elastic: create collection %q: %s: %s", name, resp.Status, snippet(resp.Body))
	}
	return nil
}

// BulkIndex implements backend.Indexer via POST /_bulk with an NDJSON
// payload. Item-level rejections reported in the response surface as a
// single batch error carrying the first few reasons.
func (c *Client) BulkIndex(ctx context.Context, actions []backend.Action) error {
	if len(actions) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range actions {
		meta := map[string]any{"_index": a.Collection}
		if a.ID != "" {
			meta["_id"] = a.ID
		}
		if err := enc.Encode(map[string]any{"index": meta}); err != nil {
			return fmt.Errorf("elastic: encode bulk action: %w", err)
		}
		if err := enc.Encode(a.Doc); err != nil {
			return fmt.Errorf("elastic: encode bulk document: %w", err)
		}
	}

	resp, err := c.do(ctx, http.MethodPost, "/_bulk", buf.Bytes(), "application/x-ndjson")
	if err != nil {
		return fmt.Errorf("elastic: bulk: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("elastic: bulk: %s: %s", resp.Status, snippet(resp.Body))
	}

	var br bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return fmt.Errorf("elastic: decode bulk response: %w", err)
	}
	if br.Errors {
		return fmt.Errorf("elastic: bulk: %s", br.firstFailures(3))
	}
	return nil
}

// bulkResponse is the subset of the _bulk reply the client needs.
type bulkResponse struct {
	Errors bool                      `json:"errors"`
	Items  []map[string]bulkItemBody `json:"items"`
}

type bulkItemBody struct {
	Status int `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// firstFailures summarizes up to limit rejected items for the batch error.
func (br bulkResponse) firstFailures(limit int) string {
	failed := 0
	var parts []string
	for _, item := range br.Items {
		for _, body := range item {
			if body.Error == nil {
				continue
			}
			failed++
			if len(parts) < limit {
				parts = append(parts, fmt.Sprintf("%s: %s", body.Error.Type, body.Error.Reason))
			}
		}
	}
	if failed == 0 {
		return "response flagged errors but no item carried one"
	}
	return fmt.Sprintf("%d item(s) rejected: %s", failed, strings.Join(parts, "; "))
}

// do sends one request, retrying transient failures when the client was
// configured with retries. The body is supplied as a byte slice so that it
// can be safely re-sent on retry.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	attempts := c.maxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			if !isRetryableStatus(resp.StatusCode) {
				return resp, nil
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("retryable status %d from %s %s", resp.StatusCode, method, path)
		}

		if attempt+1 >= attempts {
			return nil, lastErr
		}
		c.sleep(backoffDuration(200*time.Millisecond, attempt, 5*time.Second))
	}
	return nil, lastErr
}

// isRetryableStatus reports whether a status should trigger a retry when
// retries are enabled: 5xx and 429 are transient, everything else is final.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration returns the exponential backoff for the given 0-based
// retry index, clamped to limit.
func backoffDuration(initial time.Duration, attempt int, limit time.Duration) time.Duration {
	d := initial << attempt
	if d > limit {
		return limit
	}
	return d
}

// drain discards and closes a response body so the connection can be
// reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// snippet reads a short prefix of a response body for error messages.
func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
