package httputil

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"
)

const (
	scrapingTimeout = 15 * time.Second
	apiTimeout      = 30 * time.Second
)

// NewScrapingClient builds the HTTP client an adapter owns for the
// lifetime of its session. The timeout bounds every request the
// adapter issues; proxyURL is optional.
func NewScrapingClient(proxyURL string) *http.Client {
	// HTTP/1.1 only; some target sites fingerprint h2 clients.
	transport := &http.Transport{
		ForceAttemptHTTP2: false,
		TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
	}

	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	return &http.Client{
		Timeout:   scrapingTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NewAPIClient builds a direct client for JSON API providers.
func NewAPIClient() *http.Client {
	return &http.Client{Timeout: apiTimeout}
}
