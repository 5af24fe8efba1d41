// Package httpclient builds the pooled HTTP client used by the control
// client and the CLI.
package httpclient

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/duration"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: 15s)
	Timeout time.Duration

	// MaxIdleConns is the maximum number of idle connections (default: 20)
	MaxIdleConns int

	// MaxConnsPerHost is the maximum connections per host (default: 10)
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections stay in pool (default: 90s)
	IdleConnTimeout time.Duration

	// DialTimeout is the timeout for establishing connections (default: 10s)
	DialTimeout time.Duration

	// TLSHandshakeTimeout is the timeout for TLS handshake (default: 10s)
	TLSHandshakeTimeout time.Duration

	// UserAgent is sent on every request (default: defaults.UserAgent()).
	UserAgent string

	// Headers are added to every request, e.g. Authorization.
	Headers http.Header

	// RetryCount is how many times idempotent requests are retried on
	// transport errors and 502/503/504.
	RetryCount int

	// RetryDelay is the pause between retries.
	RetryDelay time.Duration
}

// DefaultConfig returns defaults for talking to the control API.
func DefaultConfig() Config {
	return Config{
		Timeout:             duration.HTTPAPI,
		MaxIdleConns:        20,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     duration.IdleConn,
		DialTimeout:         duration.DialTimeout,
		TLSHandshakeTimeout: duration.DialTimeout,
		UserAgent:           defaults.UserAgent(),
		RetryCount:          1,
		RetryDelay:          200 * time.Millisecond,
	}
}

var (
	defaultClient *http.Client
	defaultOnce   sync.Once
)

// Default returns a shared client built from DefaultConfig.
func Default() *http.Client {
	defaultOnce.Do(func() {
		defaultClient = New(DefaultConfig())
	})
	return defaultClient
}

// New creates a client. Zero fields fall back to DefaultConfig values;
// RetryCount zero means no retries.
func New(cfg Config) *http.Client {
	def := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.TLSHandshakeTimeout == 0 {
		cfg.TLSHandshakeTimeout = def.TLSHandshakeTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		DialContext:           dialer.DialContext,
	}

	return &http.Client{
		Transport: &middlewareTransport{
			base:       transport,
			userAgent:  cfg.UserAgent,
			headers:    cfg.Headers.Clone(),
			retryCount: cfg.RetryCount,
			retryDelay: cfg.RetryDelay,
		},
		Timeout:       cfg.Timeout,
		CheckRedirect: redirectPolicyWithHeaderStrip(cfg.Headers),
	}
}

// WithTimeout returns DefaultConfig with the given timeout.
func WithTimeout(timeout time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Timeout = timeout
	return cfg
}
