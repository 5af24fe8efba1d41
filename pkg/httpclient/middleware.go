package httpclient

import (
	"net/http"
	"time"

	"github.com/cjrt007/Tornado.Ai/pkg/iohelper"
)

// middlewareTransport wraps a base RoundTripper to set the user agent and
// static headers and to retry idempotent requests.
type middlewareTransport struct {
	base       http.RoundTripper
	userAgent  string
	headers    http.Header
	retryCount int
	retryDelay time.Duration
}

// 502/503/504 come from proxies in front of the API during restarts.
var retryableStatusCodes = map[int]bool{
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// RoundTrip implements http.RoundTripper.
func (m *middlewareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())

	if m.userAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", m.userAgent)
	}
	for key, vals := range m.headers {
		for _, v := range vals {
			r.Header.Add(key, v)
		}
	}

	attempts := 1
	if idempotent(r.Method) && m.retryCount > 0 {
		attempts += m.retryCount
	}

	var resp *http.Response
	var err error

	for i := 0; i < attempts; i++ {
		if i > 0 {
			if m.retryDelay > 0 {
				select {
				case <-time.After(m.retryDelay):
				case <-r.Context().Done():
					return nil, r.Context().Err()
				}
			}
			if r.GetBody != nil {
				r.Body, _ = r.GetBody()
			}
		}

		resp, err = m.base.RoundTrip(r)
		if err != nil {
			if r.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if retryableStatusCodes[resp.StatusCode] && i < attempts-1 {
			iohelper.DrainAndClose(resp.Body)
			continue
		}

		return resp, nil
	}

	return resp, err
}

// redirectPolicyWithHeaderStrip follows up to ten redirects and drops the
// static headers when a redirect leaves the original host.
func redirectPolicyWithHeaderStrip(headers http.Header) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return http.ErrUseLastResponse
		}
		if len(via) > 0 && req.URL.Host != via[0].URL.Host {
			for key := range headers {
				req.Header.Del(key)
			}
		}
		return nil
	}
}
