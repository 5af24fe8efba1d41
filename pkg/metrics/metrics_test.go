package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/metrics"
)

func seriesCount(t *testing.T, c *metrics.Collector, name string) int {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return len(mf.GetMetric())
		}
	}
	return 0
}

func TestCollectorsAreIsolated(t *testing.T) {
	t.Parallel()

	a, err := metrics.New()
	require.NoError(t, err)
	b, err := metrics.New()
	require.NoError(t, err)
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestObserveUpdate(t *testing.T) {
	t.Parallel()

	c, err := metrics.New()
	require.NoError(t, err)

	c.ObserveUpdate("features", 2, nil)
	c.ObserveUpdate("features", 1, errors.New("boom"))
	c.ObserveUpdate("roles", 3, nil)

	assert.Equal(t, 3, seriesCount(t, c, "tornado_control_updates_total"))
	assert.Equal(t, 2, seriesCount(t, c, "tornado_control_patches_total"))
}

func TestStoreDrivesRecordGauge(t *testing.T) {
	t.Parallel()

	c, err := metrics.New()
	require.NoError(t, err)
	store, err := control.New(control.WithObserver(c))
	require.NoError(t, err)

	_, err = store.UpdateFeatures([]control.FeatureTogglePatch{{
		ID:          "tools.extra",
		Label:       control.Ptr("Extra"),
		Description: control.Ptr("Extra tools."),
		Category:    control.Ptr(control.CategoryTools),
		Enabled:     control.Ptr(true),
	}})
	require.NoError(t, err)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `tornado_control_records{collection="features"} 6`)
	assert.Contains(t, text, `tornado_control_updates_total{collection="features",outcome="ok"} 1`)
	assert.Contains(t, text, `tornado_control_patches_total{collection="features"} 1`)
}

func TestObserveRequestAndToolCall(t *testing.T) {
	t.Parallel()

	c, err := metrics.New()
	require.NoError(t, err)

	c.ObserveRequest(http.MethodGet, "GET /api/control", 200, 3*time.Millisecond)
	c.ObserveToolCall("list_tools", false)
	c.ObserveToolCall("update_roles", true)

	assert.Equal(t, 1, seriesCount(t, c, "tornado_http_requests_total"))
	assert.Equal(t, 1, seriesCount(t, c, "tornado_http_request_duration_seconds"))
	assert.Equal(t, 2, seriesCount(t, c, "tornado_mcp_tool_calls_total"))
}
