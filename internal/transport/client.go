// Package transport is the HTTP client for the analysis backend.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/secdash/internal/metrics"
	"github.com/user/secdash/internal/util"
)

const (
	// DefaultBaseURL is where the analysis backend listens by default.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 32 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	APIKey       string

	// HTTPClient overrides the underlying client; Timeout is ignored then.
	HTTPClient *http.Client
}

// Client issues JSON and multipart requests against a fixed base URL.
type Client struct {
	base       *url.URL
	http       *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	apiKey     string
}

// New creates a backend client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 250 * time.Millisecond
	}

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		base:       base,
		http:       hc,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
		apiKey:     opts.APIKey,
	}, nil
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Do issues a JSON request. GETs go through the retry loop; every other
// method is sent once.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	if method == http.MethodGet {
		return c.Get(ctx, path, nil, out)
	}
	return c.sendJSON(ctx, method, path, body, out)
}

// Get fetches path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.GetRaw(ctx, path, query)
	if err != nil {
		return err
	}
	return decode(path, data, out)
}

// GetRaw fetches path and returns the response body unparsed.
// Transient failures are retried with exponential backoff while the
// context deadline leaves room for another full attempt.
func (c *Client) GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff << (attempt - 1)
			if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait+c.timeout {
				util.Debug("Not retrying GET %s: deadline leaves no room for another attempt", path)
				break
			}
			util.Debug("Retrying GET %s in %s (attempt %d): %v", path, wait, attempt+1, lastErr)
			metrics.BackendRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				return nil, &TransportError{Method: http.MethodGet, Path: path, Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		data, err := c.send(ctx, http.MethodGet, path, query, nil, "")
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

// Post sends body as JSON and decodes the response into out.
// A nil body sends an empty request.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, body, out)
}

// FilePart is a file attached to a multipart request.
type FilePart struct {
	Field    string
	FileName string
	Content  io.Reader
}

// PostMultipart uploads a file plus plain form fields.
func (c *Client) PostMultipart(ctx context.Context, path string, file FilePart, fields map[string]string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	field := file.Field
	if field == "" {
		field = "file"
	}
	fw, err := w.CreateFormFile(field, file.FileName)
	if err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(fw, file.Content); err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to build multipart body: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}

	data, err := c.send(ctx, http.MethodPost, path, nil, &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	return decode(path, data, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	data, err := c.send(ctx, method, path, nil, reader, contentType)
	if err != nil {
		return err
	}
	return decode(path, data, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	target := c.resolve(path, query)

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(method, "error").Inc()
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	metrics.BackendRequestsTotal.WithLabelValues(method, metrics.StatusClass(resp.StatusCode)).Inc()
	util.Debug("%s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status: %s", strings.TrimSpace(snippet(data))),
		}
	}

	return data, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func decode(path string, data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, path, err)
	}
	return nil
}

func retryable(err error) bool {
	var terr *TransportError
	if !errors.As(err, &terr) {
		return false
	}
	if errors.Is(terr.Err, context.Canceled) {
		return false
	}
	if terr.Status == 0 {
		return true
	}
	return terr.Status >= 500 || terr.Status == http.StatusTooManyRequests
}

func snippet(data []byte) string {
	const max = 200
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
