package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/leeforge/sncicd-plugin-activate/errors"
	"github.com/leeforge/sncicd-plugin-activate/json"
	"github.com/leeforge/sncicd-plugin-activate/logging"
	"github.com/leeforge/sncicd-plugin-activate/metrics"
	"github.com/leeforge/sncicd-plugin-activate/request"
)

// Options is the per-call request configuration: Basic auth credentials and
// fixed headers. It is never mutated by the client.
type Options struct {
	Username string
	Password string
	Headers  map[string]string
}

// Response is a completed HTTP exchange with its body fully read.
type Response struct {
	StatusCode int
	Body       []byte
	RequestID  string
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

// Client performs authenticated JSON requests. It traces through the
// logger stored in the request context.
type Client struct {
	http    *http.Client
	metrics *metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets a per-request timeout; zero means none. The
// *http.Client is copied, so one passed to WithHTTPClient is left as is.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithMetrics records every exchange in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string, opts Options) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, opts)
}

// Post performs a POST request with body encoded as JSON.
func (c *Client) Post(ctx context.Context, url string, body any, opts Options) (*Response, error) {
	return c.Do(ctx, http.MethodPost, url, body, opts)
}

// Do performs the request. A failure to get any response is a transport
// error. A non-2xx response is returned together with a *StatusError.
func (c *Client) Do(ctx context.Context, method, url string, body any, opts Options) (*Response, error) {
	req, rc, err := c.makeRequest(ctx, method, url, body, opts)
	if err != nil {
		return nil, err
	}

	log := logging.WithContext(logging.FromContext(ctx).Named("http"), ctx).With(
		zap.String("method", method),
		zap.String("url", url),
		zap.String("request_id", rc.RequestID),
	)
	log.Debug("sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordTransportError(method)
		log.Debug("request failed", zap.Error(err))
		return nil, apperrors.NewTransport(err)
	}

	return c.handleResponse(resp, rc, log)
}

func (c *Client) makeRequest(ctx context.Context, method, url string, body any, opts Options) (*http.Request, *request.RequestContext, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, apperrors.WrapWithType(err, apperrors.ErrorTypeProtocol, "failed to marshal request body: "+err.Error()).
				WithCode(apperrors.CodeProtocol)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, nil, apperrors.NewTransport(err)
	}

	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set(request.HeaderContentType, "application/json")
	}
	if opts.Username != "" || opts.Password != "" {
		req.SetBasicAuth(opts.Username, opts.Password)
	}

	rc := request.NewRequestContext(ctx, method, url)
	rc.Apply(req)
	return req, rc, nil
}

func (c *Client) handleResponse(resp *http.Response, rc *request.RequestContext, log logging.Logger) (*Response, error) {
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordTransportError(rc.Method)
		return nil, apperrors.NewTransport(err)
	}

	elapsed := rc.Elapsed()
	c.metrics.RecordRequest(rc.Method, resp.StatusCode, elapsed)
	log.Debug("received response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
		zap.Int("bytes", len(data)),
	)

	out := &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		RequestID:  rc.RequestID,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &StatusError{
			Method:     rc.Method,
			URL:        rc.URL,
			StatusCode: resp.StatusCode,
			Body:       data,
		}
	}
	return out, nil
}
