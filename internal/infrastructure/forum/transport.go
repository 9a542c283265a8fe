package forum

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"LeakScanner/internal/domain"
)

// NewProxyTransport returns an HTTP transport dialing through the given
// socks5:// proxy. Host names are resolved by the proxy. An empty proxyURL
// yields a direct transport.
func NewProxyTransport(proxyURL string) (*http.Transport, error) {
	base := &http.Transport{
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	if proxyURL == "" {
		base.DialContext = (&net.Dialer{Timeout: 15 * time.Second}).DialContext
		return base, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("%w: forum proxy: %v", domain.ErrConfiguration, err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("%w: forum proxy scheme %q is not socks5", domain.ErrConfiguration, u.Scheme)
	}
	u.Scheme = "socks5"

	dialer, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("%w: forum proxy: %v", domain.ErrConfiguration, err)
	}
	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("%w: forum proxy dialer does not support contexts", domain.ErrConfiguration)
	}
	base.DialContext = contextDialer.DialContext
	return base, nil
}
