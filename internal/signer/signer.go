// Package signer attaches the session bearer token to outbound requests
// aimed at the storefront API, and to nothing else.
package signer

import (
	"net/http"
	"net/url"
	"strings"

	"storefront-state/internal/observability"
)

// DefaultOrigins are the API origins signed when none are configured
var DefaultOrigins = []string{"localhost:3000", "localhost:8080"}

// TokenSource yields the current bearer token. *session.Store implements it.
type TokenSource interface {
	CurrentToken() (string, bool)
}

// origin is one allow-list entry: a host (with optional port) and an
// optional path prefix.
type origin struct {
	host   string
	prefix string
}

// Signer decorates requests with Authorization: Bearer <token>
type Signer struct {
	tokens  TokenSource
	origins []origin
}

// New creates a signer. Each allow-list entry is a host ("api.example.com",
// "localhost:3000"), a host with a path prefix ("example.com/api/"), or a
// full URL whose scheme is ignored. An empty list means DefaultOrigins.
func New(tokens TokenSource, allowList ...string) *Signer {
	if len(allowList) == 0 {
		allowList = DefaultOrigins
	}
	s := &Signer{tokens: tokens}
	for _, entry := range allowList {
		if o, ok := parseOrigin(entry); ok {
			s.origins = append(s.origins, o)
		}
	}
	return s
}

func parseOrigin(entry string) (origin, bool) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return origin{}, false
	}
	if i := strings.Index(entry, "://"); i >= 0 {
		entry = entry[i+3:]
	}
	host, prefix, _ := strings.Cut(entry, "/")
	o := origin{host: strings.ToLower(host)}
	if prefix != "" {
		o.prefix = "/" + prefix
	}
	return o, o.host != ""
}

// Allowed reports whether u targets an allow-listed API origin
func (s *Signer) Allowed(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, o := range s.origins {
		if host != o.host && strings.ToLower(u.Hostname()) != o.host {
			continue
		}
		if o.prefix == "" || strings.HasPrefix(u.Path, o.prefix) {
			return true
		}
	}
	return false
}

// Sign returns req with the bearer token attached when a valid token exists
// and the URL is allow-listed. Otherwise req is returned unchanged. The
// original request is never modified.
func (s *Signer) Sign(req *http.Request) *http.Request {
	if !s.Allowed(req.URL) {
		observability.RequestSignerTotal.WithLabelValues("passthrough").Inc()
		return req
	}
	token, ok := s.tokens.CurrentToken()
	if !ok {
		observability.RequestSignerTotal.WithLabelValues("no_token").Inc()
		return req
	}

	signed := req.Clone(req.Context())
	signed.Header.Set("Authorization", "Bearer "+token)
	observability.RequestSignerTotal.WithLabelValues("signed").Inc()
	return signed
}

// Transport returns a RoundTripper that signs every request before handing
// it to base. A nil base means http.DefaultTransport.
func (s *Signer) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return roundTripper{signer: s, base: base}
}

type roundTripper struct {
	signer *Signer
	base   http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt.base.RoundTrip(rt.signer.Sign(req))
}
