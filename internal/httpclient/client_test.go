package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/burst/internal/config"
)

type capturedRequest struct {
	method string
	body   string
	header http.Header
	length int64
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	captured := make(chan capturedRequest, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured <- capturedRequest{method: r.Method, body: string(body), header: r.Header.Clone(), length: r.ContentLength}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ignored response body"))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func TestRequestBuilderHeadersAreCanonicalAndCloned(t *testing.T) {
	cfg := &config.Config{
		Host:    "http://example.com/api",
		Method:  config.MethodPost,
		Headers: map[string]string{"content-type": "application/json", "X-Trace-Id": "12345"},
		Body:    `{"hello":"world"}`,
	}

	builder, err := NewRequestBuilder(cfg)
	require.NoError(t, err)

	first := builder.Build()
	assert.Equal(t, http.MethodPost, first.Method)
	assert.Equal(t, cfg.Host, first.URL)
	assert.Equal(t, "application/json", first.Header.Get("Content-Type"))
	require.NotNil(t, first.Body)

	first.Header.Set("Traceparent", "00-abc")
	assert.Empty(t, builder.Build().Header.Get("Traceparent"), "header mutation leaked into the next request")
}

func TestRequestBuilderDropsBodyForGet(t *testing.T) {
	builder, err := NewRequestBuilder(&config.Config{Host: "http://example.com", Method: config.MethodGet, Body: "ignored"})
	require.NoError(t, err)
	assert.Nil(t, builder.Build().Body)
}

func TestRequestBuilderDefaultsAndNormalizesMethod(t *testing.T) {
	tests := map[config.Method]string{
		"":      http.MethodGet,
		"patch": http.MethodPatch,
		"Put":   http.MethodPut,
	}
	for in, want := range tests {
		builder, err := NewRequestBuilder(&config.Config{Host: "http://example.com", Method: in})
		require.NoError(t, err, "method %q", in)
		assert.Equal(t, want, builder.Build().Method, "method %q", in)
	}
}

func TestRequestBuilderRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"nil config", nil},
		{"missing host", &config.Config{}},
		{"empty header key", &config.Config{Host: "http://example.com", Headers: map[string]string{"": "v"}}},
		{"newline in key", &config.Config{Host: "http://example.com", Headers: map[string]string{"Bad\nKey": "v"}}},
		{"newline in value", &config.Config{Host: "http://example.com", Headers: map[string]string{"X-Test": "bad\rvalue"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequestBuilder(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSendGetCarriesNoBody(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK)
	client := New(time.Second, nil)
	defer client.CloseIdleConnections()

	status, err := client.Send(context.Background(), Request{Method: http.MethodGet, URL: server.URL, Header: http.Header{"X-Env": {"test"}}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	got := <-captured
	assert.Equal(t, http.MethodGet, got.method)
	assert.Empty(t, got.body)
	assert.Equal(t, "test", got.header.Get("X-Env"))
	assert.Empty(t, got.header.Get("Authorization"))
}

func TestSendPostAttachesBody(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusCreated)
	builder, err := NewRequestBuilder(&config.Config{Host: server.URL, Method: config.MethodPost, Body: `{"a":1}`})
	require.NoError(t, err)
	client := New(time.Second, nil)
	defer client.CloseIdleConnections()

	status, err := client.Send(context.Background(), builder.Build())
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)

	got := <-captured
	assert.Equal(t, `{"a":1}`, got.body)
	assert.EqualValues(t, 7, got.length)
}

func TestSendPostWithEmptyBody(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK)
	builder, err := NewRequestBuilder(&config.Config{Host: server.URL, Method: config.MethodPut})
	require.NoError(t, err)
	client := New(time.Second, nil)
	defer client.CloseIdleConnections()

	_, err = client.Send(context.Background(), builder.Build())
	require.NoError(t, err)

	got := <-captured
	assert.Equal(t, http.MethodPut, got.method)
	assert.Empty(t, got.body)
	assert.Zero(t, got.length)
}

func TestSendFileBodyLengthMatchesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"v":1}`), 0o600))

	server, captured := newCaptureServer(t, http.StatusOK)
	builder, err := NewRequestBuilder(&config.Config{Host: server.URL, Method: config.MethodPost, BodyFile: path})
	require.NoError(t, err)
	client := New(time.Second, nil)
	defer client.CloseIdleConnections()

	_, err = client.Send(context.Background(), builder.Build())
	require.NoError(t, err)
	got := <-captured
	assert.Equal(t, `{"v":1}`, got.body)
	assert.EqualValues(t, 7, got.length)

	require.NoError(t, os.WriteFile(path, []byte(`{"v":"longer"}`), 0o600))
	_, err = client.Send(context.Background(), builder.Build())
	require.NoError(t, err)
	got = <-captured
	assert.Equal(t, `{"v":"longer"}`, got.body)
	assert.EqualValues(t, len(`{"v":"longer"}`), got.length)
}

func TestSendServerErrorIsNotTransportError(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusServiceUnavailable)
	client := New(time.Second, nil)
	defer client.CloseIdleConnections()

	status, err := client.Send(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestSendConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	client := New(time.Second, nil)
	_, err = client.Send(context.Background(), Request{Method: http.MethodGet, URL: "http://" + addr})
	assert.Error(t, err)
}

type headerAuth struct {
	calls atomic.Int32
	err   error
}

func (a *headerAuth) InjectHeader(_ context.Context, req *http.Request) error {
	a.calls.Add(1)
	if a.err != nil {
		return a.err
	}
	req.SetBasicAuth("spongebob", "supersekretpassword")
	return nil
}

func TestSendInjectsAuthPerRequest(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK)
	auth := &headerAuth{}
	client := New(time.Second, auth)
	defer client.CloseIdleConnections()

	for i := 0; i < 3; i++ {
		_, err := client.Send(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
		require.NoError(t, err)
		got := <-captured
		user, pass, ok := (&http.Request{Header: got.header}).BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "spongebob", user)
		assert.Equal(t, "supersekretpassword", pass)
	}
	assert.EqualValues(t, 3, auth.calls.Load())
}

func TestSendAuthFailureStopsRequest(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK)
	client := New(time.Second, &headerAuth{err: errors.New("no token")})

	_, err := client.Send(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	require.Error(t, err)
	select {
	case got := <-captured:
		assert.Failf(t, "request reached server", "%+v", got)
	default:
	}
}

func TestClientTimeoutApplied(t *testing.T) {
	timeout := 50 * time.Millisecond
	client := NewClient(timeout)
	defer client.CloseIdleConnections()
	require.Equal(t, timeout, client.Timeout)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(timeout * 3)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	var netErr net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
	assert.True(t, timedOut, "Do() error = %v, want timeout", err)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok, "Transport = %T", client.Transport)
	assert.NotZero(t, transport.MaxIdleConnsPerHost)
	assert.NotZero(t, transport.IdleConnTimeout)
}

func TestSendHonorsContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := New(10*time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Send(ctx, Request{Method: http.MethodGet, URL: server.URL})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
