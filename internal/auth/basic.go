package auth

import (
	"context"
	"net/http"
)

// BasicProvider sends HTTP basic credentials. A nil password is sent as an
// empty one.
type BasicProvider struct {
	user     string
	password string
}

func NewBasicProvider(user string, password *string) *BasicProvider {
	p := &BasicProvider{user: user}
	if password != nil {
		p.password = *password
	}
	return p
}

func (p *BasicProvider) InjectHeader(_ context.Context, req *http.Request) error {
	req.SetBasicAuth(p.user, p.password)
	return nil
}

func (p *BasicProvider) Close() error {
	return nil
}
