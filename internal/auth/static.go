package auth

import (
	"context"
	"net/http"
)

// StaticTokenProvider sends a pre-issued bearer token with every request.
type StaticTokenProvider struct {
	header string
}

func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{header: "Bearer " + token}
}

func (p *StaticTokenProvider) InjectHeader(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", p.header)
	return nil
}

func (p *StaticTokenProvider) Close() error {
	return nil
}
