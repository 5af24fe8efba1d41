package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjrt007/Tornado.Ai/pkg/api"
	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/logging"
)

func apiServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := control.New()
	require.NoError(t, err)
	ts := httptest.NewServer(api.New(store, api.WithLogger(logging.Discard())).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestResultIsHealthy(t *testing.T) {
	assert.True(t, (&Result{Status: StatusHealthy}).IsHealthy())
	assert.False(t, (&Result{Status: StatusUnhealthy}).IsHealthy())
}

func TestNewCheckerRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "ftp://x", "http://"} {
		_, err := NewChecker(u)
		assert.Error(t, err, u)
	}
}

func TestNewCheckerEndpoint(t *testing.T) {
	c, err := NewChecker("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080"+defaults.PathHealth, c.Endpoint())
}

func TestCheckHealthyAPI(t *testing.T) {
	ts := apiServer(t)
	c, err := NewChecker(ts.URL, WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	r := c.Check(context.Background())
	require.True(t, r.IsHealthy(), r.Message)
	assert.Equal(t, http.StatusOK, r.StatusCode)
	require.NotNil(t, r.Report)
	assert.Equal(t, defaults.Version, r.Report.Version)
	assert.Equal(t, 5, r.Report.Features)
	assert.Equal(t, 4, r.Report.Roles)
}

func TestCheckUnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c, err := NewChecker(ts.URL, WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	r := c.Check(context.Background())
	assert.False(t, r.IsHealthy())
	assert.Equal(t, http.StatusServiceUnavailable, r.StatusCode)
	assert.Contains(t, r.Message, "unexpected status code: 503")
}

func TestCheckMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer ts.Close()

	c, err := NewChecker(ts.URL, WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	r := c.Check(context.Background())
	assert.False(t, r.IsHealthy())
	assert.Contains(t, r.Message, "decoding body")
}

func TestWaitUntilHealthy(t *testing.T) {
	var calls atomic.Int32
	ready := apiServer(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		ready.Config.Handler.ServeHTTP(w, r)
	}))
	defer ts.Close()

	c, err := NewChecker(ts.URL, WithHTTPClient(ts.Client()), WithInterval(10*time.Millisecond))
	require.NoError(t, err)

	r, err := c.Wait(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.True(t, r.IsHealthy())
	assert.Equal(t, 3, r.Attempts)
}

func TestWaitTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c, err := NewChecker(ts.URL, WithHTTPClient(ts.Client()), WithInterval(10*time.Millisecond))
	require.NoError(t, err)

	r, err := c.Wait(context.Background(), 100*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	assert.False(t, r.IsHealthy())
	assert.GreaterOrEqual(t, r.Attempts, 1)
}

func TestWaitCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c, err := NewChecker(ts.URL, WithHTTPClient(ts.Client()), WithInterval(time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Wait(ctx, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
