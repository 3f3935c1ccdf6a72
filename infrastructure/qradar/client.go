package qradar

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Harrysk/ibm.qradar/config"
	"github.com/Harrysk/ibm.qradar/pkg/logging"
	"github.com/Harrysk/ibm.qradar/pkg/metrics"
	"github.com/Harrysk/ibm.qradar/shared/common"
)

// DefaultAPIVersion is the QRadar REST API version the modules are written against
const DefaultAPIVersion = "9.1"

// maxResponseSize caps how much of a response body is read
const maxResponseSize = 32 << 20

// Client sends requests to the QRadar REST API
type Client struct {
	baseURL     string
	httpClient  *http.Client
	authHandler *AuthHandler
	apiVersion  string
	limiter     *rate.Limiter
	logger      *logging.Logger
	metrics     *metrics.Collector
}

// ClientOption customises a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client, mainly for tests
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMetrics records every request on the collector
func WithMetrics(collector *metrics.Collector) ClientOption {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithRateLimit limits the client to rps requests per second
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a new QRadar API client from the connection configuration
func NewClient(cfg config.ConnectionConfig, logger *logging.Logger, opts ...ClientOption) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("QRadar host cannot be empty")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	authHandler, err := NewAuthHandler(cfg.Token, cfg.Username, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth handler: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.ValidateCerts,
		},
		IdleConnTimeout: 90 * time.Second,
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	client := &Client{
		baseURL: cfg.BaseURL(),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		authHandler: authHandler,
		apiVersion:  apiVersion,
		logger:      logger.WithComponent("qradar_client"),
	}

	for _, opt := range opts {
		opt(client)
	}

	client.logger.Debug("QRadar client configured",
		zap.String("base_url", client.baseURL),
		zap.String("auth_type", string(authHandler.Type())),
		zap.String("api_version", apiVersion),
		zap.Bool("validate_certs", cfg.ValidateCerts),
	)

	return client, nil
}

// GetByPath fetches path and returns the parsed JSON body
func (c *Client) GetByPath(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// CreateUpdate posts data as JSON to path. QRadar uses the same call for
// creating and replacing log sources.
func (c *Client) CreateUpdate(ctx context.Context, path string, data interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, common.ErrInternal("failed to encode request body").WithCause(err)
	}
	return c.do(ctx, http.MethodPost, path, body)
}

// DeleteByPath deletes the resource at path
func (c *Client) DeleteByPath(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// do sends a single request. There is no retry: a failed call is reported as
// a transport error and ends the module run.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, common.ErrTransport("rate limiter wait aborted", err)
		}
	}

	req, err := c.buildRequest(ctx, method, path, body)
	if err != nil {
		return nil, common.ErrTransport(fmt.Sprintf("failed to build %s request for %s", method, path), err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.record(method, path, 0, duration)
		c.recordError("network")
		return nil, common.ErrTransport(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	c.record(method, path, resp.StatusCode, duration)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.recordError("read_body")
		return nil, common.ErrTransport(fmt.Sprintf("failed to read %s %s response", method, path), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordError("http_status")
		apiErr := newAPIError(method, path, resp.StatusCode, data)
		return nil, common.ErrTransport(fmt.Sprintf("%s %s returned status %d", method, path, resp.StatusCode), apiErr).
			WithContext("status_code", resp.StatusCode)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		c.recordError("decode")
		return nil, common.ErrTransport(fmt.Sprintf("%s %s returned invalid JSON", method, path), nil)
	}

	return json.RawMessage(data), nil
}

// buildRequest builds an HTTP request for the QRadar API
func (c *Client) buildRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	resource, query, _ := strings.Cut(strings.TrimPrefix(path, "/"), "?")
	fullURL := c.baseURL + "/" + resource
	if query != "" {
		fullURL += "?" + canonicalQuery(query)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, err
	}

	c.authHandler.Apply(req)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Version", c.apiVersion)

	return req, nil
}

func (c *Client) record(method, path string, statusCode int, duration time.Duration) {
	c.logger.LogAPICall(method, path, statusCode, duration)
	if c.metrics != nil {
		c.metrics.RecordAPIRequest(method, endpointLabel(path), statusCode, duration)
	}
}

func (c *Client) recordError(errorType string) {
	if c.metrics != nil {
		c.metrics.RecordError(errorType, "qradar_client")
	}
}

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// endpointLabel strips the query and numeric ids so metric labels stay bounded
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.TrimPrefix(path, "/")
	return numericSegment.ReplaceAllString(path, "/{id}$1")
}

// APIError is a non-2xx response from QRadar
type APIError struct {
	Method      string
	Path        string
	StatusCode  int
	Code        int
	Message     string
	Description string
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Description != "" {
		return fmt.Sprintf("QRadar API %s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, msg, e.Description)
	}
	return fmt.Sprintf("QRadar API %s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// newAPIError decodes QRadar's error document when the body carries one
func newAPIError(method, path string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: statusCode}

	var doc struct {
		Code        int    `json:"code"`
		Message     string `json:"message"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &doc); err == nil {
		apiErr.Code = doc.Code
		apiErr.Message = doc.Message
		apiErr.Description = doc.Description
	}

	return apiErr
}

// IsNotFound reports whether err is a QRadar 404 response
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// debugFields is used by repositories to log lookups consistently
func debugFields(path string, fields ...zap.Field) []zap.Field {
	return append([]zap.Field{zap.String("path", path)}, fields...)
}

// escapeFilter encodes a filter expression for use as a query value. Spaces
// become %20 rather than "+".
func escapeFilter(filter string) string {
	return strings.ReplaceAll(url.QueryEscape(filter), "+", "%20")
}

// canonicalQuery percent-escapes every key and value of a raw key=value&...
// query while keeping the pairs in order. Components that are already escaped
// come out unchanged.
func canonicalQuery(raw string) string {
	pairs := strings.Split(raw, "&")
	for i, pair := range pairs {
		key, value, hasValue := strings.Cut(pair, "=")
		pair = escapeComponent(key)
		if hasValue {
			pair += "=" + escapeComponent(value)
		}
		pairs[i] = pair
	}
	return strings.Join(pairs, "&")
}

func escapeComponent(s string) string {
	if unescaped, err := url.PathUnescape(s); err == nil {
		s = unescaped
	}
	return escapeFilter(s)
}
