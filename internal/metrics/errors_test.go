package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), ReasonTimeout},
		{"canceled", &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, ReasonCanceled},
		{"refused errno", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, ReasonRefused},
		{"reset errno", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, ReasonReset},
		{"dns", &url.Error{Op: "Get", URL: "http://nope", Err: &net.DNSError{Err: "no such host", Name: "nope"}}, ReasonDNS},
		{"refused text", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), ReasonRefused},
		{"other", errors.New("tls: handshake failure"), ReasonOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FailureReason(tt.err))
		})
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		100: "1xx",
		200: "2xx",
		302: "3xx",
		404: "4xx",
		599: "5xx",
		0:   "other",
		600: "other",
	}
	for code, want := range tests {
		assert.Equal(t, want, statusClass(code), "code %d", code)
	}
}
