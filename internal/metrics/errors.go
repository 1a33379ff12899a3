package metrics

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Failure reasons used as the "reason" label on burst_request_failures_total.
const (
	ReasonTimeout  = "timeout"
	ReasonCanceled = "canceled"
	ReasonRefused  = "refused"
	ReasonDNS      = "dns"
	ReasonReset    = "reset"
	ReasonOther    = "other"
)

// FailureReason maps a transport error onto a small, fixed label set so the
// failures counter keeps a bounded cardinality.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, syscall.ECONNREFUSED):
		return ReasonRefused
	case errors.Is(err, syscall.ECONNRESET):
		return ReasonReset
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNS
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	// Some platforms only surface these as text.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return ReasonRefused
	case strings.Contains(msg, "connection reset"):
		return ReasonReset
	case strings.Contains(msg, "no such host"):
		return ReasonDNS
	}
	return ReasonOther
}
