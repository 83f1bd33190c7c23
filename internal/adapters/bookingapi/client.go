package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"consultdesk/internal/adapters/http/perf"
)

// DefaultErrorMessage is surfaced when a failed response carries no usable detail.
const DefaultErrorMessage = "Ошибка запроса"

// AdminTokenHeader carries the admin credential on authenticated calls.
const AdminTokenHeader = "X-Admin-Token"

// RequestIDHeader correlates frontend logs with API logs.
const RequestIDHeader = "X-Request-ID"

// APIError is a non-2xx response from the booking API.
// Error returns only the human-readable message so handlers can show it as-is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// TransportError wraps a failure to reach the API at all.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string { return "Сервис записи недоступен" }

// Unwrap exposes the underlying network error.
func (e *TransportError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status of an APIError, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client calls the consultation booking REST API.
type Client struct {
	baseURL string
	http    *http.Client
	loc     *time.Location
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient *http.Client
	timeout    time.Duration
	loc        *time.Location
	collector  *perf.Collector
	slowMs     float64
}

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped, not replaced.
func WithHTTPClient(h *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = h }
}

// WithTimeout bounds every call. Zero means the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithLocation sets the zone naive API timestamps are read in.
func WithLocation(loc *time.Location) Option {
	return func(c *clientConfig) { c.loc = loc }
}

// WithCollector records every call into the perf ring buffer.
func WithCollector(collector *perf.Collector) Option {
	return func(c *clientConfig) { c.collector = collector }
}

// WithSlowThreshold sets the latency above which calls are logged at WARN.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *clientConfig) { c.slowMs = float64(d.Milliseconds()) }
}

// New creates a client for the API rooted at baseURL.
// PRE: baseURL is an absolute http(s) URL
// POST: Returns a client whose transport is timed and instrumented
func New(baseURL string, opts ...Option) *Client {
	cfg := clientConfig{
		loc:    time.UTC,
		slowMs: 500,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	hc := &http.Client{}
	if cfg.httpClient != nil {
		copied := *cfg.httpClient
		hc = &copied
	}
	if cfg.timeout > 0 {
		hc.Timeout = cfg.timeout
	}
	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc.Transport = &timedTransport{next: next, collector: cfg.collector, slowMs: cfg.slowMs}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		loc:     cfg.loc,
	}
}

// Location returns the zone used for naive timestamps.
func (c *Client) Location() *time.Location { return c.loc }

// RequestOption adjusts a single request.
type RequestOption func(*http.Request)

// WithAdminToken authenticates the request as admin.
func WithAdminToken(token string) RequestOption {
	return func(r *http.Request) { r.Header.Set(AdminTokenHeader, token) }
}

// Do performs one API call.
// body, when non-nil, is sent as JSON. out, when non-nil, receives the decoded response.
// PRE: path starts with "/"
// POST: non-2xx → *APIError with the extracted message; network failure → *TransportError;
// 204 or an unparseable success body → nil error and out untouched
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: ErrorMessage(data)}
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if !json.Valid(data) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// ErrorMessage extracts a human-readable message from a failed response body.
// An array detail joins each item's msg (or message, or its JSON) with "; ";
// an object detail yields its message (or its JSON); otherwise the detail or
// top-level message string is used. Anything else yields DefaultErrorMessage.
func ErrorMessage(body []byte) string {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return DefaultErrorMessage
	}

	if raw, ok := data["detail"]; ok {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 {
			switch raw[0] {
			case '[':
				var items []json.RawMessage
				if err := json.Unmarshal(raw, &items); err == nil {
					parts := make([]string, 0, len(items))
					for _, item := range items {
						parts = append(parts, itemMessage(item))
					}
					if joined := strings.Join(parts, "; "); joined != "" {
						return joined
					}
				}
				return DefaultErrorMessage
			case '{':
				var obj map[string]json.RawMessage
				if err := json.Unmarshal(raw, &obj); err == nil {
					if msg := stringField(obj, "message"); msg != "" {
						return msg
					}
				}
				return compactJSON(raw)
			case '"':
				var s string
				if err := json.Unmarshal(raw, &s); err == nil && s != "" {
					return s
				}
			case 'n', 'f':
				// null and false fall through to the message field
			default:
				if string(raw) != "0" {
					return string(raw)
				}
			}
		}
	}

	if msg := stringField(data, "message"); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}

func itemMessage(item json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(item, &obj); err == nil {
		if msg := stringField(obj, "msg"); msg != "" {
			return msg
		}
		if msg := stringField(obj, "message"); msg != "" {
			return msg
		}
	}
	return compactJSON(item)
}

func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
