// Package http builds the outbound *http.Client used for email delivery,
// Web Push and the LLM API.
package http

import (
	"net"
	"net/http"
	"time"
)

// Defaults.
const (
	DefaultTimeout             = 20 * time.Second
	DefaultMaxIdleConnsPerHost = 16
	DefaultUserAgent           = "NordicsToday/1.0 (+https://nordicstoday.com)"
)

// ClientConfig tunes NewClient. Zero values take defaults.
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConnsPerHost int
	UserAgent           string
}

// NewClient returns a client with pooled keep-alive connections and a fixed
// User-Agent. Pass nil for defaults.
func NewClient(cfg *ClientConfig) *http.Client {
	c := ClientConfig{}
	if cfg != nil {
		c = *cfg
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Timeout:   c.Timeout,
		Transport: &userAgent{ua: c.UserAgent, next: transport},
	}
}

type userAgent struct {
	ua   string
	next http.RoundTripper
}

func (u *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return u.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", u.ua)
	return u.next.RoundTrip(r)
}
