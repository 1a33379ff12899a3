package client

import (
	"go.uber.org/zap"

	"github.com/torosent/burst/internal/dispatch"
	"github.com/torosent/burst/internal/output"
)

// Option customises a Client.
type Option func(*options)

type options struct {
	reporter   output.Reporter
	logger     *zap.Logger
	httpClient dispatch.HTTPClient
}

// WithReporter sets where progress, status and error lines go.
// The default discards them.
func WithReporter(r output.Reporter) Option {
	return func(o *options) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHTTPClient replaces the pooled net/http client. Credentials from the
// config are not applied to a replacement client.
func WithHTTPClient(c dispatch.HTTPClient) Option {
	return func(o *options) {
		o.httpClient = c
	}
}
