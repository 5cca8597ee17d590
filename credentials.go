package tfs

import (
	"net/http"
	"time"

	"github.com/Azure/go-ntlmssp"

	"github.com/tphakala/go-tfs/internal/api"
	"github.com/tphakala/go-tfs/internal/auth"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer = api.Doer

// CredentialProvider builds an HTTP client that authenticates requests to
// host with the given domain account.
type CredentialProvider interface {
	NewHTTPClient(domain, username, password, host string) (Doer, error)
}

// NTLMProvider authenticates with NTLM/Negotiate. Credentials are only sent
// to the configured host.
type NTLMProvider struct {
	// Base is the underlying round tripper. Default: http.DefaultTransport.
	Base http.RoundTripper

	// Timeout bounds each request, including the handshake.
	Timeout time.Duration
}

// NewHTTPClient implements CredentialProvider.
func (p *NTLMProvider) NewHTTPClient(domain, username, password, host string) (Doer, error) {
	creds := &auth.Credentials{
		Domain:   domain,
		Username: username,
		Password: password,
	}
	if !creds.Valid() {
		return nil, ErrNoCredentials
	}

	base := p.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return &http.Client{
		Timeout: p.Timeout,
		Transport: &auth.RealmTransport{
			Credentials: creds,
			Host:        host,
			Base:        ntlmssp.Negotiator{RoundTripper: base},
		},
	}, nil
}
