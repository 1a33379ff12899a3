// Package auth attaches credentials to outgoing requests.
package auth

import (
	"context"
	"net/http"

	"github.com/torosent/burst/internal/config"
)

// Provider injects authentication into HTTP requests.
type Provider interface {
	// InjectHeader sets the Authorization header of req.
	InjectHeader(ctx context.Context, req *http.Request) error

	// Close releases any resources held by the provider.
	Close() error
}

// FromConfig returns the provider matching the configured credentials, or
// nil when the run is unauthenticated.
func FromConfig(cfg *config.Config) Provider {
	if cfg == nil {
		return nil
	}
	if cfg.Credentials != nil {
		return NewBasicProvider(cfg.Credentials.User, cfg.Credentials.Password)
	}
	if cfg.BearerToken != "" {
		return NewStaticTokenProvider(cfg.BearerToken)
	}
	return nil
}
