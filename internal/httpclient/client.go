package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/torosent/burst/internal/config"
)

// maxDrainBytes caps how much of a response body is read before closing so
// keep-alive connections can be reused without downloading large payloads.
const maxDrainBytes = 64 << 10

// AuthProvider injects credentials into outgoing HTTP requests.
type AuthProvider interface {
	InjectHeader(ctx context.Context, req *http.Request) error
}

// Request describes one outbound call. Header belongs to this request only,
// so hooks may add to it before Send.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// Body is nil for requests that carry no payload.
	Body Payload
}

// RequestBuilder turns the run configuration into per-request templates.
type RequestBuilder struct {
	method  string
	target  string
	headers http.Header
	body    Payload
}

func NewRequestBuilder(cfg *config.Config) (*RequestBuilder, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	target := strings.TrimSpace(cfg.Host)
	if target == "" {
		return nil, errors.New("host is required")
	}

	method := strings.ToUpper(strings.TrimSpace(string(cfg.Method)))
	if method == "" {
		method = http.MethodGet
	}

	var body Payload
	if config.Method(method).HasBody() {
		p, err := PayloadFor(cfg)
		if err != nil {
			return nil, err
		}
		body = p
	}

	headers := http.Header{}
	for key, value := range cfg.Headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		headers.Set(canonicalKey, value)
	}

	return &RequestBuilder{
		method:  method,
		target:  target,
		headers: headers,
		body:    body,
	}, nil
}

// Build returns a fresh Request with its own copy of the headers.
func (b *RequestBuilder) Build() Request {
	return Request{
		Method: b.method,
		URL:    b.target,
		Header: b.headers.Clone(),
		Body:   b.body,
	}
}

// Client sends Requests over a shared, pooled transport. It is safe for
// concurrent use.
type Client struct {
	http *http.Client
	auth AuthProvider
}

// New creates a Client whose underlying http.Client enforces timeout. auth
// may be nil.
func New(timeout time.Duration, auth AuthProvider) *Client {
	return &Client{http: NewClient(timeout), auth: auth}
}

// Send performs the request and returns the response status code. Any
// status is a successful send; only transport failures return an error.
func (c *Client) Send(ctx context.Context, r Request) (int, error) {
	req, err := c.build(ctx, r)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return resp.StatusCode, nil
}

func (c *Client) build(ctx context.Context, r Request) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, nil)
	if err != nil {
		return nil, err
	}

	if r.Body != nil {
		body, size, err := r.Body.Open()
		if err != nil {
			return nil, fmt.Errorf("open body: %w", err)
		}
		if size == 0 {
			_ = body.Close()
			body = http.NoBody
		}
		req.Body = body
		req.ContentLength = size
		req.GetBody = func() (io.ReadCloser, error) {
			rc, _, err := r.Body.Open()
			return rc, err
		}
	}

	for key, values := range r.Header {
		for _, val := range values {
			req.Header.Add(key, val)
		}
	}

	if c.auth != nil {
		if err := c.auth.InjectHeader(ctx, req); err != nil {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			return nil, fmt.Errorf("auth provider inject header: %w", err)
		}
	}

	return req, nil
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// NewClient builds the pooled http.Client shared by every request of a run.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
