package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/burst/internal/client"
	"github.com/torosent/burst/internal/lock"
)

func newTarget(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// newHangingTarget accepts requests and holds them until the test ends or
// the client gives up.
func newHangingTarget(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return srv
}

// newSilentCollector accepts TCP connections and never writes a byte, so an
// OTLP exporter pointed at it blocks until its context is done.
func newSilentCollector(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			_ = conn.Close()
		}
	})
	return ln.Addr().String()
}

func TestRunSingleBurst(t *testing.T) {
	srv, hits := newTarget(t)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-h", srv.URL, "-l", "3", "-w", "5", "-v"}, &stdout, &stderr)
	require.NoError(t, err, "stderr: %s", stderr.String())

	assert.EqualValues(t, 3, hits.Load())
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 4, stdout.String())
	assert.Equal(t, "Sending 3 requests...", lines[0])
	for _, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, "Request ID: "), "status line = %q", line)
		assert.True(t, strings.HasSuffix(line, "status: 200 OK"), "status line = %q", line)
	}
}

func TestRunTimedWithPauses(t *testing.T) {
	if testing.Short() {
		t.Skip("timed run takes two seconds")
	}
	srv, hits := newTarget(t)
	var stdout, stderr bytes.Buffer

	start := time.Now()
	err := run(context.Background(), []string{"-h", srv.URL, "-d", "2", "-i", "1", "-l", "1", "-v"}, &stdout, &stderr)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 2*time.Second)
	assert.Contains(t, stdout.String(), "Sending requests for 2 seconds...")
	assert.Contains(t, stdout.String(), "Pausing for 1 second")
	assert.GreaterOrEqual(t, hits.Load(), int64(2))
}

func TestRunExactDeadline(t *testing.T) {
	srv := newHangingTarget(t)

	var stdout, stderr bytes.Buffer
	start := time.Now()
	err := run(context.Background(), []string{"-h", srv.URL, "-d", "1", "-e"}, &stdout, &stderr)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, client.ErrDeadlineReached)
	assert.Less(t, elapsed, 3*time.Second, "want about 1s")
	assert.Contains(t, stdout.String(), "Sending requests and will exit in 1 second...")
}

func TestRunExactDeadlineWithStalledCollector(t *testing.T) {
	srv := newHangingTarget(t)
	collector := newSilentCollector(t)

	var stdout, stderr bytes.Buffer
	start := time.Now()
	err := run(context.Background(), []string{
		"-h", srv.URL,
		"-d", "1", "-e",
		"-l", "5",
		"--trace-endpoint", collector,
		"--trace-insecure",
		"--trace-sample-rate", "1",
		"--metrics-addr", "127.0.0.1:0",
	}, &stdout, &stderr)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, client.ErrDeadlineReached)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 2500*time.Millisecond, "exit must not wait on span export or metrics shutdown")
}

func TestRunConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unsupported method", []string{"-h", "http://localhost:1", "-m", "delete"}, `method "delete" is not supported`},
		{"interval without duration", []string{"-h", "http://localhost:1", "-i", "1"}, "interval requires duration"},
		{"exact without duration", []string{"-h", "http://localhost:1", "-e"}, "exact requires duration"},
		{"missing host", []string{"-l", "1"}, "host is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, &stdout, &stderr)
			require.ErrorContains(t, err, tt.want)
			assert.Zero(t, stdout.Len(), "stdout = %q", stdout.String())
		})
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "--workers")
}

func TestRunPrintConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-h", "http://localhost:1", "-u", "bob", "-p", "secret", "--print-config"}, &stdout, &stderr)
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "host: http://localhost:1")
	assert.NotContains(t, out, "secret", "print-config leaked password")
}

func TestRunRequestErrorsGoToStderr(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-h", url, "-l", "2", "-t", "1"}, &stdout, &stderr))
	assert.Equal(t, 2, strings.Count(stderr.String(), "Request error: "), stderr.String())
}

func TestRunInterrupted(t *testing.T) {
	srv, _ := newTarget(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	err := run(ctx, []string{"-h", srv.URL, "-d", "60", "-i", "1", "-l", "1"}, &stdout, &stderr)
	assert.ErrorIs(t, err, errInterrupted)
}

func TestRunLockConflict(t *testing.T) {
	srv, _ := newTarget(t)
	path := filepath.Join(t.TempDir(), "burst.lock")
	held, err := lock.Acquire(path)
	require.NoError(t, err)
	defer held.Release()

	var stdout, stderr bytes.Buffer
	err = run(context.Background(), []string{"-h", srv.URL, "--lock-file", path}, &stdout, &stderr)
	assert.ErrorIs(t, err, lock.ErrLocked)
}
