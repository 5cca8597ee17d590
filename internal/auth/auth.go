// Package auth provides TFS domain credentials and host-scoped request signing.
package auth

import (
	"net/http"
	"strings"
)

// Credentials holds Windows domain credentials for a TFS server.
type Credentials struct {
	Domain   string
	Username string
	Password string
}

// Principal returns the DOMAIN\user form used by NTLM.
func (c *Credentials) Principal() string {
	return c.Domain + `\` + c.Username
}

// Apply stores the credentials on the request as basic auth. The NTLM
// negotiator takes them from there and replaces the header during the
// challenge-response exchange.
func (c *Credentials) Apply(req *http.Request) {
	if c == nil {
		return
	}
	req.SetBasicAuth(c.Principal(), c.Password)
}

// Valid reports whether credentials are configured.
func (c *Credentials) Valid() bool {
	return c != nil && c.Domain != "" && c.Username != "" && c.Password != ""
}

// RealmTransport applies Credentials only to requests addressed to Host.
// Requests for other hosts, or requests that already carry an Authorization
// header, pass through untouched.
type RealmTransport struct {
	Credentials *Credentials
	Host        string
	Base        http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *RealmTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if !t.inRealm(req) || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	signed := req.Clone(req.Context())
	t.Credentials.Apply(signed)
	return base.RoundTrip(signed)
}

func (t *RealmTransport) inRealm(req *http.Request) bool {
	return req.URL != nil && strings.EqualFold(req.URL.Hostname(), t.Host)
}
