package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	otelx "github.com/md-rashed-zaman/careportal/libs/otel"
)

// Envelope keys understood by the relay.
const (
	EnvelopeMethod       = "method"
	EnvelopeSessionToken = "sessionToken"
)

const maxResponseBytes = 4 << 20

// Client calls the healthcare API, either directly or through the portal
// relay. It never retries; every failure reaches the caller.
type Client struct {
	cfg    Config
	mode   Mode
	http   *http.Client
	logger *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the traced default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg:    cfg,
		mode:   cfg.Mode(),
		http:   otelx.HTTPClient(cfg.Timeout),
		logger: logger.With("component", "backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Mode() Mode      { return c.mode }
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// RequestOptions mirror what a caller would hand to fetch.
type RequestOptions struct {
	// Method defaults to POST.
	Method string
	Header http.Header
	// Body is JSON encoded. In proxy mode it must encode to an object.
	Body any
	// SessionToken is sent as a bearer credential.
	SessionToken string
}

// Do sends one request for endpoint (a path from the endpoint table,
// optionally with a query) and decodes a 2xx JSON answer into out.
func (c *Client) Do(ctx context.Context, endpoint string, opts RequestOptions, out any) error {
	if !strings.HasPrefix(endpoint, "/") {
		return &ValidationError{Field: "endpoint", Reason: "must start with /"}
	}
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodPost
	}

	var (
		req *http.Request
		err error
	)
	if c.mode == ModeProxy {
		req, err = c.proxyRequest(ctx, endpoint, method, opts)
	} else {
		req, err = c.directRequest(ctx, endpoint, method, opts)
	}
	if err != nil {
		return err
	}

	start := time.Now()
	if c.cfg.EnableLogging {
		c.logger.Info("backend request", "mode", c.mode.String(), "method", method, "endpoint", endpoint, "url", req.URL.Redacted())
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("backend call failed", "endpoint", endpoint, "mode", c.mode.String(), "err", err)
		return &NetworkError{URL: req.URL.Redacted(), ProxyMode: c.mode == ModeProxy, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{URL: req.URL.Redacted(), ProxyMode: c.mode == ModeProxy, Err: err}
	}
	if c.cfg.EnableLogging {
		c.logger.Info("backend response", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(raw), "duration_ms", time.Since(start).Milliseconds())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("backend error response", "endpoint", endpoint, "status", resp.StatusCode)
		return &HTTPError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) directRequest(ctx context.Context, endpoint, method string, opts RequestOptions) (*http.Request, error) {
	var body io.Reader
	hasBody := opts.Body != nil && method != http.MethodGet && method != http.MethodHead
	if hasBody {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.SessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+opts.SessionToken)
	}
	return req, nil
}

// proxyRequest folds method, token and body fields into one JSON object and
// POSTs it to the relay.
func (c *Client) proxyRequest(ctx context.Context, endpoint, method string, opts RequestOptions) (*http.Request, error) {
	envelope := map[string]json.RawMessage{}
	if opts.Body != nil {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, &ValidationError{Field: "body", Reason: "must be a JSON object in proxy mode"}
		}
		if envelope == nil {
			envelope = map[string]json.RawMessage{}
		}
	}
	if method != http.MethodPost {
		envelope[EnvelopeMethod], _ = json.Marshal(method)
	}
	if opts.SessionToken != "" {
		envelope[EnvelopeSessionToken], _ = json.Marshal(opts.SessionToken)
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	target := c.cfg.ProxyURL + "?endpoint=" + url.QueryEscape(endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// HealthProbe is the raw outcome of a GET on the backend health route.
type HealthProbe struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
}

// ProbeHealth always goes straight to the backend, whatever the mode, and
// reports any HTTP answer as a probe result rather than an error.
func (c *Client) ProbeHealth(ctx context.Context) (HealthProbe, error) {
	target := c.cfg.BaseURL + PathHealth
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return HealthProbe{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return HealthProbe{}, ctxErr
		}
		return HealthProbe{}, &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}
	return HealthProbe{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    headers,
	}, nil
}
