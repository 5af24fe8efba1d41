// Package health checks a running control API and waits for it to become
// ready.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cjrt007/Tornado.Ai/pkg/api"
	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/duration"
	"github.com/cjrt007/Tornado.Ai/pkg/httpclient"
	"github.com/cjrt007/Tornado.Ai/pkg/iohelper"
	"github.com/cjrt007/Tornado.Ai/pkg/jsonutil"
)

// ErrTimeout is returned by Wait when the API did not become healthy in time.
var ErrTimeout = errors.New("health check timed out")

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Result is the outcome of one check.
type Result struct {
	Endpoint   string              `json:"endpoint"`
	Status     Status              `json:"status"`
	StatusCode int                 `json:"statusCode,omitempty"`
	Latency    time.Duration       `json:"latency"`
	Message    string              `json:"message,omitempty"`
	CheckedAt  time.Time           `json:"checkedAt"`
	Attempts   int                 `json:"attempts"`
	Report     *api.HealthResponse `json:"report,omitempty"`
}

// IsHealthy returns true if the check succeeded.
func (r *Result) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// Checker polls the health endpoint of one API.
type Checker struct {
	endpoint string
	client   *http.Client
	interval time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(ch *Checker) { ch.client = c }
}

// WithInterval sets the pause between checks in Wait.
func WithInterval(d time.Duration) Option {
	return func(ch *Checker) { ch.interval = d }
}

// NewChecker builds a checker for the API rooted at baseURL.
func NewChecker(baseURL string, opts ...Option) (*Checker, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("health: invalid base URL %q", baseURL)
	}
	c := &Checker{
		endpoint: u.String() + defaults.PathHealth,
		interval: duration.HealthInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		cfg := httpclient.WithTimeout(duration.HTTPHealthCheck)
		cfg.RetryCount = 0
		c.client = httpclient.New(cfg)
	}
	return c, nil
}

// Endpoint returns the health URL.
func (c *Checker) Endpoint() string { return c.endpoint }

// Check calls the endpoint once. Failures are reported in the result, not as errors.
func (c *Checker) Check(ctx context.Context) *Result {
	start := time.Now()
	result := &Result{
		Endpoint:  c.endpoint,
		Status:    StatusUnhealthy,
		CheckedAt: start,
		Attempts:  1,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		result.Message = fmt.Sprintf("failed to create request: %v", err)
		return result
	}
	req.Header.Set("Accept", defaults.ContentTypeJSON)

	resp, err := c.client.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Message = fmt.Sprintf("request failed: %v", httpclient.Classify(err))
		return result
	}
	defer iohelper.DrainAndClose(resp.Body)

	result.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		result.Message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		return result
	}

	body, err := iohelper.ReadBodySmall(resp.Body)
	if err != nil {
		result.Message = fmt.Sprintf("reading body: %v", err)
		return result
	}
	var report api.HealthResponse
	if err := jsonutil.Unmarshal(body, &report); err != nil {
		result.Message = fmt.Sprintf("decoding body: %v", err)
		return result
	}
	result.Report = &report
	if report.Status != "ok" {
		result.Message = fmt.Sprintf("reported status %q", report.Status)
		return result
	}

	result.Status = StatusHealthy
	result.Message = "OK"
	return result
}

// Wait polls until the API is healthy or gives up at timeout or when ctx is done.
// The last result is returned in every case.
func (c *Checker) Wait(ctx context.Context, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempts := 0
	for {
		attempts++
		result := c.Check(ctx)
		result.Attempts = attempts
		if result.IsHealthy() {
			return result, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return result, fmt.Errorf("%w after %d attempts: %s", ErrTimeout, attempts, result.Message)
			}
			return result, ctx.Err()
		case <-time.After(c.interval):
		}
	}
}
