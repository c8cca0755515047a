package httpapi

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

	"github.com/google/uuid"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/ports"
)

const (
	defaultRequestTimeout = 20 * time.Second
	maxResponseBytes      = 16 << 20
)

// Config carries the endpoint and per-leg timeouts.
type Config struct {
	BaseURL         string
	UserAgent       string
	RequestTimeout  time.Duration
	UploadTimeout   time.Duration
	FinalizeTimeout time.Duration
}

// Client talks to the contract analysis backend. Every call gets its own
// deadline; the underlying http.Client has none.
type Client struct {
	baseURL         string
	userAgent       string
	requestTimeout  time.Duration
	uploadTimeout   time.Duration
	finalizeTimeout time.Duration
	tokens          ports.TokenSource
	http            *http.Client
	logger          *slog.Logger
}

var (
	_ ports.AccountAPI  = (*Client)(nil)
	_ ports.HistoryAPI  = (*Client)(nil)
	_ ports.AnalysisAPI = (*Client)(nil)
	_ ports.PaymentAPI  = (*Client)(nil)
	_ ports.ShareAPI    = (*Client)(nil)
)

// NewClient builds a client; httpClient may be nil.
func NewClient(cfg Config, tokens ports.TokenSource, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 5 * time.Minute
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = 5 * time.Minute
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ContractGuard/1.0"
	}
	return &Client{
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:       cfg.UserAgent,
		requestTimeout:  cfg.RequestTimeout,
		uploadTimeout:   cfg.UploadTimeout,
		finalizeTimeout: cfg.FinalizeTimeout,
		tokens:          tokens,
		http:            httpClient,
		logger:          logger,
	}
}

// BaseURL returns the configured endpoint without trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Request describes one call. Timeout <= 0 uses the default request timeout.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Header  http.Header
	Timeout time.Duration
	// Public requests never carry the bearer credential.
	Public bool
}

// Send issues req and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) Send(ctx context.Context, req Request, out any) error {
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}

	return c.do(ctx, req.Method, req.Path, req.Query, body, header, req.Timeout, req.Public, out)
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body io.Reader,
	header http.Header,
	timeout time.Duration,
	public bool,
	out any,
) error {
	if timeout <= 0 {
		timeout = c.requestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	op := method + " " + path
	endpoint := c.endpoint(path, query)

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if !public && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		terr := transportError(op, err)
		c.warn("request failed", "op", op, "request_id", requestID, "error", terr)
		return terr
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		terr := transportError(op, err)
		c.warn("read response failed", "op", op, "request_id", requestID, "error", terr)
		return terr
	}

	c.debug("request done",
		"op", op,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(started).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rerr := remoteError(op, resp.StatusCode, resp.Header.Get("Content-Type"), payload)
		c.warn("request rejected",
			"op", op,
			"status", resp.StatusCode,
			"request_id", requestID,
			"diagnostic", rerr.Message,
		)
		return rerr
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		c.warn("decode response failed", "op", op, "request_id", requestID, "error", err)
		return &apperr.Error{Kind: apperr.KindMalformed, Op: op, Body: payload, Err: err}
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Client) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
